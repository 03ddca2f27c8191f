package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"hackscan/internal/config"
	forensicerrors "hackscan/internal/errors"
	"hackscan/internal/retry"
	"hackscan/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// nodeClient 单节点连接及其健康状态
type nodeClient struct {
	config       *config.NodeConfig
	client       *ethclient.Client
	errorCount   int
	disabled     bool
	rateLimitEnd time.Time
}

// Client 多节点故障转移客户端
type Client struct {
	mu      sync.Mutex
	nodes   []*nodeClient
	current int
	retrier *retry.Retrier
	logger  *logrus.Logger

	codeMu    sync.RWMutex
	codeCache map[string]bool // 地址 -> 是否为合约
}

// NewClient 创建链客户端并连接所有节点
func NewClient(cfg *config.BlockchainConfig, logger *logrus.Logger) (*Client, error) {
	if cfg == nil || len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("未配置任何区块链节点")
	}

	c := &Client{
		retrier:   retry.NewRetrier(retry.RPCRetryConfig, logger),
		logger:    logger,
		codeCache: make(map[string]bool),
	}

	// 按优先级排序，失效转移时从高优先级节点开始
	nodeConfigs := make([]*config.NodeConfig, len(cfg.Nodes))
	copy(nodeConfigs, cfg.Nodes)
	sort.SliceStable(nodeConfigs, func(i, j int) bool {
		return nodeConfigs[i].Priority < nodeConfigs[j].Priority
	})

	for _, nodeCfg := range nodeConfigs {
		client, err := ethclient.Dial(nodeCfg.URL)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"node": nodeCfg.Name,
				"url":  nodeCfg.URL,
			}).WithError(err).Warn("节点连接失败，已跳过")
			continue
		}

		c.nodes = append(c.nodes, &nodeClient{
			config: nodeCfg,
			client: client,
		})
		logger.WithField("node", nodeCfg.Name).Info("节点连接成功")
	}

	if len(c.nodes) == 0 {
		return nil, fmt.Errorf("所有节点连接失败")
	}

	return c, nil
}

// Close 关闭所有节点连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, node := range c.nodes {
		node.client.Close()
	}
}

// getAvailableNode 获取当前可用节点
func (c *Client) getAvailableNode() (*nodeClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(c.nodes); i++ {
		idx := (c.current + i) % len(c.nodes)
		node := c.nodes[idx]
		if node.disabled {
			continue
		}
		if now.Before(node.rateLimitEnd) {
			continue
		}
		c.current = idx
		return node, nil
	}

	return nil, forensicerrors.NewTransportError("没有可用的区块链节点", nil)
}

// isRateLimitError 判断是否为限流错误
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"429", "rate limit", "too many requests", "exceeded"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// handleNodeError 记录节点错误，错误过多或限流时切换节点
func (c *Client) handleNodeError(node *nodeClient, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isRateLimitError(err) {
		node.rateLimitEnd = time.Now().Add(5 * time.Minute)
		c.logger.WithField("node", node.config.Name).Warn("节点触发限流，暂停使用5分钟")
		c.current = (c.current + 1) % len(c.nodes)
		return
	}

	node.errorCount++
	if node.errorCount >= 3 {
		node.disabled = true
		c.logger.WithField("node", node.config.Name).Error("节点连续出错，已禁用")
		c.current = (c.current + 1) % len(c.nodes)
	}
}

// execute 在可用节点上执行操作，失败时自动重试和故障转移
func (c *Client) execute(ctx context.Context, operation string, fn func(client *ethclient.Client) error) error {
	return c.retrier.Execute(ctx, operation, func() error {
		node, err := c.getAvailableNode()
		if err != nil {
			return err
		}

		if err := fn(node.client); err != nil {
			c.handleNodeError(node, err)
			if isRateLimitError(err) {
				return forensicerrors.NewRateLimitError(node.config.Name, err)
			}
			return err
		}

		node.errorCount = 0
		return nil
	})
}

// BlockNumber 获取当前链头区块号
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.execute(ctx, "eth_blockNumber", func(client *ethclient.Client) error {
		var err error
		head, err = client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, forensicerrors.NewTransportError("获取链头区块号失败", err)
	}
	return head, nil
}

// TransactionByHash 根据哈希获取交易
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*types.Transaction, error) {
	var tx *types.Transaction
	err := c.execute(ctx, "eth_getTransactionByHash", func(client *ethclient.Client) error {
		var pending bool
		var err error
		tx, pending, err = client.TransactionByHash(ctx, common.HexToHash(hash))
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("交易尚未上链: %s", hash)
		}
		return nil
	})
	if err != nil {
		ferr := forensicerrors.NewTransportError("获取交易失败", err)
		return nil, ferr.WithTxHash(hash)
	}
	return tx, nil
}

// TransactionReceipt 获取交易回执
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.execute(ctx, "eth_getTransactionReceipt", func(client *ethclient.Client) error {
		var err error
		receipt, err = client.TransactionReceipt(ctx, common.HexToHash(hash))
		return err
	})
	if err != nil {
		ferr := forensicerrors.NewTransportError("获取交易回执失败", err)
		return nil, ferr.WithTxHash(hash)
	}
	return receipt, nil
}

// HeaderByNumber 获取区块头
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	var header *types.Header
	err := c.execute(ctx, "eth_getBlockByNumber", func(client *ethclient.Client) error {
		var err error
		header, err = client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		ferr := forensicerrors.NewTransportError("获取区块头失败", err)
		return nil, ferr.WithBlockNumber(number)
	}
	return header, nil
}

// StorageAt 读取指定区块高度的存储槽
func (c *Client) StorageAt(ctx context.Context, address string, slot string, blockNumber uint64) ([]byte, error) {
	var data []byte
	err := c.execute(ctx, "eth_getStorageAt", func(client *ethclient.Client) error {
		var err error
		data, err = client.StorageAt(ctx, common.HexToAddress(address), common.HexToHash(slot), new(big.Int).SetUint64(blockNumber))
		return err
	})
	if err != nil {
		ferr := forensicerrors.NewStorageReadError(fmt.Sprintf("读取存储槽失败: %s", slot), err)
		return nil, ferr.WithAddress(address).WithBlockNumber(blockNumber)
	}
	return data, nil
}

// CodeAt 获取地址在最新区块的字节码
func (c *Client) CodeAt(ctx context.Context, address string) ([]byte, error) {
	var code []byte
	err := c.execute(ctx, "eth_getCode", func(client *ethclient.Client) error {
		var err error
		code, err = client.CodeAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		ferr := forensicerrors.NewTransportError("获取合约字节码失败", err)
		return nil, ferr.WithAddress(address)
	}
	return code, nil
}

// IsContract 判断地址是否为合约（结果缓存）
func (c *Client) IsContract(ctx context.Context, address string) (bool, error) {
	key := strings.ToLower(address)

	c.codeMu.RLock()
	cached, ok := c.codeCache[key]
	c.codeMu.RUnlock()
	if ok {
		return cached, nil
	}

	code, err := c.CodeAt(ctx, address)
	if err != nil {
		return false, err
	}

	isContract := len(code) > 0
	c.codeMu.Lock()
	c.codeCache[key] = isContract
	c.codeMu.Unlock()

	return isContract, nil
}

// TransactionDetail 获取交易完整信息并转换为内部模型
func (c *Client) TransactionDetail(ctx context.Context, hash string) (*models.Transaction, error) {
	tx, err := c.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	receipt, err := c.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	header, err := c.HeaderByNumber(ctx, receipt.BlockNumber.Uint64())
	if err != nil {
		return nil, err
	}

	detail := &models.Transaction{}
	detail.FromEthereumTransaction(tx, receipt, header.Time)
	return detail, nil
}
