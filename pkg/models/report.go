package models

import (
	"sort"
	"time"
)

// ReportMetadata 调查元数据
type ReportMetadata struct {
	AnalyzedAt          time.Time `json:"analyzedAt"`
	HackTransaction     string    `json:"hackTransaction"`
	VictimContract      string    `json:"victimContract"`
	HackerAddress       string    `json:"hackerAddress"`
	KnownImplementation string    `json:"knownImplementation,omitempty"`
}

// HackDetails 种子交易分析结果
type HackDetails struct {
	Transaction  *Transaction  `json:"transaction,omitempty"`
	TraceSteps   []*TraceStep  `json:"trace_steps,omitempty"`
	StateChanges *StateChanges `json:"state_changes,omitempty"`
}

// ReportAnalysis 分析结果集合
type ReportAnalysis struct {
	HackDetails           *HackDetails              `json:"hackDetails"`
	SuspiciousActions     []*Transaction            `json:"suspiciousActions"`
	RelatedContracts      []string                  `json:"relatedContracts"`
	ImplementationHistory []*ImplementationSighting `json:"implementationHistory"`
}

// Report 一次调查运行的聚合结果
// 由单个运行独占持有，四个阶段按顺序写入，运行结束后只序列化不再修改
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Analysis ReportAnalysis `json:"analysis"`

	relatedSet map[string]struct{}
}

// NewReport 创建新的调查报告
func NewReport(hackTx, victim, hacker, knownImpl string) *Report {
	return &Report{
		Metadata: ReportMetadata{
			AnalyzedAt:          time.Now(),
			HackTransaction:     hackTx,
			VictimContract:      victim,
			HackerAddress:       hacker,
			KnownImplementation: knownImpl,
		},
		Analysis: ReportAnalysis{
			HackDetails:           &HackDetails{},
			SuspiciousActions:     make([]*Transaction, 0),
			RelatedContracts:      make([]string, 0),
			ImplementationHistory: make([]*ImplementationSighting, 0),
		},
		relatedSet: make(map[string]struct{}),
	}
}

// AddRelatedContract 记录关联合约地址（集合语义，重复插入折叠）
func (r *Report) AddRelatedContract(address string) {
	if address == "" {
		return
	}

	// 反序列化得到的报告没有内部集合，按需重建
	if r.relatedSet == nil {
		r.relatedSet = make(map[string]struct{}, len(r.Analysis.RelatedContracts))
		for _, a := range r.Analysis.RelatedContracts {
			r.relatedSet[a] = struct{}{}
		}
	}

	if _, exists := r.relatedSet[address]; exists {
		return
	}
	r.relatedSet[address] = struct{}{}
	r.Analysis.RelatedContracts = append(r.Analysis.RelatedContracts, address)
}

// HasRelatedContract 判断合约是否已记录
func (r *Report) HasRelatedContract(address string) bool {
	if r.relatedSet != nil {
		_, ok := r.relatedSet[address]
		return ok
	}
	for _, a := range r.Analysis.RelatedContracts {
		if a == address {
			return true
		}
	}
	return false
}

// AddSuspiciousAction 追加可疑操作
// 单地址历史内按区块升序，跨地址按爬取发现顺序
func (r *Report) AddSuspiciousAction(tx *Transaction) {
	if tx == nil {
		return
	}
	r.Analysis.SuspiciousActions = append(r.Analysis.SuspiciousActions, tx)
}

// AddImplementationSighting 追加实现地址采样记录
func (r *Report) AddImplementationSighting(s *ImplementationSighting) {
	if s == nil {
		return
	}
	r.Analysis.ImplementationHistory = append(r.Analysis.ImplementationHistory, s)
}

// Finalize 序列化前的收尾处理
// relatedContracts以列表形式落盘，排序保证产物稳定可比对
func (r *Report) Finalize() {
	sort.Strings(r.Analysis.RelatedContracts)
}
