package models

// 内部调用的参与方类型组合
const (
	StepContractToContract = "contract_to_contract"
	StepContractToEOA      = "contract_to_eoa"
	StepEOAToContract      = "eoa_to_contract"
	StepEOAToEOA           = "eoa_to_eoa"
)

// TraceStep 交易内部调用步骤
type TraceStep struct {
	TransactionHash string  `json:"transaction_hash"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	Value           *BigInt `json:"value"`
	Input           string  `json:"input"`
	CallType        string  `json:"call_type"` // "call", "delegatecall", "staticcall", "create"

	// 分析派生字段
	Kind       string   `json:"kind"` // 参与方类型组合，见Step*常量
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons,omitempty"`
}

// AddReason 追加可疑原因（去重）
func (s *TraceStep) AddReason(reason string) {
	for _, r := range s.Reasons {
		if r == reason {
			return
		}
	}
	s.Reasons = append(s.Reasons, reason)
}
