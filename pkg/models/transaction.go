package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transaction 交易数据模型
type Transaction struct {
	Hash        string    `json:"hash"`
	BlockNumber uint64    `json:"block_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       *BigInt   `json:"value"`
	Input       string    `json:"input"`
	Timestamp   time.Time `json:"timestamp"`

	// 输入数据分类字段
	Method        string            `json:"method"`
	DecodedParams map[string]string `json:"decoded_params,omitempty"`
	Suspicious    bool              `json:"suspicious"`
	Reasons       []string          `json:"reasons,omitempty"`
}

// AddReason 追加可疑原因（去重）
func (t *Transaction) AddReason(reason string) {
	for _, r := range t.Reasons {
		if r == reason {
			return
		}
	}
	t.Reasons = append(t.Reasons, reason)
}

// FromEthereumTransaction 从以太坊交易转换为内部模型
func (t *Transaction) FromEthereumTransaction(tx *types.Transaction, receipt *types.Receipt, blockTime uint64) {
	if tx == nil {
		return
	}

	t.Hash = tx.Hash().Hex()
	t.Value = NewBigInt(tx.Value())
	t.Input = "0x" + common.Bytes2Hex(tx.Data())
	t.Timestamp = time.Unix(int64(blockTime), 0)

	if tx.To() != nil {
		t.To = tx.To().Hex()
	}

	// 根据交易类型推导发送地址，新签名者向下兼容旧交易类型
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		// 部分特殊交易无法恢复发送地址，保留空字符串
		t.From = ""
	} else {
		t.From = from.Hex()
	}

	if receipt != nil && receipt.BlockNumber != nil {
		t.BlockNumber = receipt.BlockNumber.Uint64()
	}
}
