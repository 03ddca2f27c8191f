package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	forensicerrors "hackscan/internal/errors"
	"hackscan/internal/retry"
	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// apiResponse 浏览器API统一响应结构
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// rawTransaction 浏览器API返回的交易记录
type rawTransaction struct {
	Hash        string `json:"hash"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Input       string `json:"input"`
}

// Client 区块浏览器API客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retrier    *retry.Retrier
	logger     *logrus.Logger
}

// NewClient 创建浏览器API客户端
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retrier: retry.NewRetrier(retry.ExplorerRetryConfig, logger),
		logger:  logger,
	}
}

// call 发起API请求并解析统一响应
func (c *Client) call(ctx context.Context, params url.Values) (json.RawMessage, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	var result json.RawMessage
	err := c.retrier.Execute(ctx, params.Get("action"), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return forensicerrors.NewRateLimitError("explorer", fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("浏览器API返回异常状态码: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var envelope apiResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("解析API响应失败: %w", err)
		}

		// 状态为"0"表示无记录或查询失败，交由调用方按空结果处理
		if envelope.Status != "1" {
			c.logger.WithFields(logrus.Fields{
				"action":  params.Get("action"),
				"message": envelope.Message,
			}).Debug("浏览器API返回空结果")
			result = nil
			return nil
		}

		result = envelope.Result
		return nil
	})
	if err != nil {
		return nil, forensicerrors.NewTransportError("浏览器API请求失败", err)
	}

	return result, nil
}

// convertTransactions 将API记录转换为内部模型，按区块号升序排列
func (c *Client) convertTransactions(raws []rawTransaction) []*models.Transaction {
	txs := make([]*models.Transaction, 0, len(raws))
	for _, raw := range raws {
		blockNumber, err := strconv.ParseUint(raw.BlockNumber, 10, 64)
		if err != nil {
			c.logger.WithField("tx_hash", raw.Hash).WithError(err).Warn("交易区块号解析失败，已跳过")
			continue
		}

		value, err := models.NewBigIntFromString(raw.Value)
		if err != nil {
			c.logger.WithField("tx_hash", raw.Hash).WithError(err).Warn("交易金额解析失败，已跳过")
			continue
		}

		timestamp, _ := strconv.ParseInt(raw.TimeStamp, 10, 64)

		txs = append(txs, &models.Transaction{
			Hash:        raw.Hash,
			BlockNumber: blockNumber,
			From:        raw.From,
			To:          raw.To,
			Value:       value,
			Input:       raw.Input,
			Timestamp:   time.Unix(timestamp, 0),
		})
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].BlockNumber < txs[j].BlockNumber
	})

	return txs
}

// ListTransactions 获取地址的全部外部交易（按区块号升序）
func (c *Client) ListTransactions(ctx context.Context, address string) ([]*models.Transaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("sort", "asc")

	result, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var raws []rawTransaction
	if err := json.Unmarshal(result, &raws); err != nil {
		return nil, forensicerrors.NewTransportError("解析交易列表失败", err)
	}

	return c.convertTransactions(raws), nil
}

// ListInternalCalls 获取交易的内部调用记录
func (c *Client) ListInternalCalls(ctx context.Context, txHash string) ([]*models.TraceStep, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlistinternal")
	params.Set("txhash", txHash)

	result, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var raws []rawTransaction
	if err := json.Unmarshal(result, &raws); err != nil {
		return nil, forensicerrors.NewTransportError("解析内部调用列表失败", err)
	}

	steps := make([]*models.TraceStep, 0, len(raws))
	for _, raw := range raws {
		value, err := models.NewBigIntFromString(raw.Value)
		if err != nil {
			c.logger.WithField("tx_hash", txHash).WithError(err).Warn("内部调用金额解析失败，已跳过")
			continue
		}

		steps = append(steps, &models.TraceStep{
			TransactionHash: txHash,
			From:            raw.From,
			To:              raw.To,
			Value:           value,
			Input:           raw.Input,
			CallType:        "call",
		})
	}

	return steps, nil
}
