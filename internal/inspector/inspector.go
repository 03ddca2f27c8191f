package inspector

import (
	"context"

	"hackscan/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// EIP-1967标准代理存储槽
const (
	// ImplementationSlot keccak256("eip1967.proxy.implementation") - 1
	ImplementationSlot = "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"
	// AdminSlot keccak256("eip1967.proxy.admin") - 1
	AdminSlot = "0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103"
	// BeaconSlot keccak256("eip1967.proxy.beacon") - 1
	BeaconSlot = "0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50"
)

// StorageReader 存储读取接口
type StorageReader interface {
	StorageAt(ctx context.Context, address string, slot string, blockNumber uint64) ([]byte, error)
}

// Inspector 代理合约状态检查器
type Inspector struct {
	reader StorageReader
	logger *logrus.Logger
}

// NewInspector 创建状态检查器
func NewInspector(reader StorageReader, logger *logrus.Logger) *Inspector {
	return &Inspector{
		reader: reader,
		logger: logger,
	}
}

// wordToAddress 将32字节存储字转换为校验和格式地址
// 全零字对应零地址，表示该槽位未设置
func wordToAddress(word []byte) string {
	addr := common.BytesToAddress(word)
	return addr.Hex()
}

// ImplementationAt 读取指定高度的实现地址
func (i *Inspector) ImplementationAt(ctx context.Context, proxy string, blockNumber uint64) (string, error) {
	word, err := i.reader.StorageAt(ctx, proxy, ImplementationSlot, blockNumber)
	if err != nil {
		return "", err
	}
	return wordToAddress(word), nil
}

// AdminAt 读取指定高度的管理员地址
func (i *Inspector) AdminAt(ctx context.Context, proxy string, blockNumber uint64) (string, error) {
	word, err := i.reader.StorageAt(ctx, proxy, AdminSlot, blockNumber)
	if err != nil {
		return "", err
	}
	return wordToAddress(word), nil
}

// StateAt 读取指定高度的完整代理状态
func (i *Inspector) StateAt(ctx context.Context, proxy string, blockNumber uint64) (*models.ContractState, error) {
	implementation, err := i.ImplementationAt(ctx, proxy, blockNumber)
	if err != nil {
		return nil, err
	}

	admin, err := i.AdminAt(ctx, proxy, blockNumber)
	if err != nil {
		return nil, err
	}

	i.logger.WithFields(logrus.Fields{
		"proxy":          proxy,
		"block":          blockNumber,
		"implementation": implementation,
		"admin":          admin,
	}).Debug("已读取代理合约状态")

	return &models.ContractState{
		BlockNumber:    blockNumber,
		Implementation: implementation,
		Admin:          admin,
	}, nil
}

// StateChangesAround 对比交易所在区块前后的代理状态
func (i *Inspector) StateChangesAround(ctx context.Context, proxy string, blockNumber uint64) (*models.StateChanges, error) {
	if blockNumber == 0 {
		after, err := i.StateAt(ctx, proxy, 0)
		if err != nil {
			return nil, err
		}
		return models.NewStateChanges(&models.ContractState{}, after), nil
	}

	before, err := i.StateAt(ctx, proxy, blockNumber-1)
	if err != nil {
		return nil, err
	}

	after, err := i.StateAt(ctx, proxy, blockNumber)
	if err != nil {
		return nil, err
	}

	return models.NewStateChanges(before, after), nil
}
