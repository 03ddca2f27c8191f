package models

// ZeroAddress 全零地址的标准表示
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ContractState 代理合约在某一区块高度的状态快照
type ContractState struct {
	BlockNumber    uint64 `json:"block_number"`
	Implementation string `json:"implementation"`
	Admin          string `json:"admin"`
}

// HasImplementation 实现槽是否已初始化
// 全零实现地址表示"非代理或未初始化"，不是错误
func (s *ContractState) HasImplementation() bool {
	return s != nil && s.Implementation != "" && s.Implementation != ZeroAddress
}

// ImplementationSighting 实现地址采样记录
type ImplementationSighting struct {
	BlockNumber    uint64 `json:"block_number"`
	Implementation string `json:"implementation"`
}

// StateChanges 事件前后的状态对比
type StateChanges struct {
	Before                *ContractState `json:"before"`
	After                 *ContractState `json:"after"`
	ImplementationChanged bool           `json:"implementation_changed"`
	AdminChanged          bool           `json:"admin_changed"`
}

// NewStateChanges 对比前后状态快照
func NewStateChanges(before, after *ContractState) *StateChanges {
	sc := &StateChanges{
		Before: before,
		After:  after,
	}
	if before != nil && after != nil {
		sc.ImplementationChanged = before.Implementation != after.Implementation
		sc.AdminChanged = before.Admin != after.Admin
	}
	return sc
}
