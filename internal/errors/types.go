package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType 错误类型
type ErrorType int

const (
	// 可恢复错误：跳过并记录
	ErrorTypeValidation ErrorType = iota
	ErrorTypeDecode

	// 阶段致命错误：向上传播到报告装配器
	ErrorTypeStorageRead
	ErrorTypeTransport

	// 基础设施错误
	ErrorTypeRateLimit
	ErrorTypeExplorer
	ErrorTypeCheckpoint
	ErrorTypeConfig
)

// ErrorSeverity 错误严重级别
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// ForensicError 自定义错误类型
type ForensicError struct {
	Type        ErrorType     `json:"type"`
	Severity    ErrorSeverity `json:"severity"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	Cause       error         `json:"-"`
	Retryable   bool          `json:"retryable"`
	Address     *string       `json:"address,omitempty"`
	TxHash      *string       `json:"tx_hash,omitempty"`
	BlockNumber *uint64       `json:"block_number,omitempty"`
}

// Error 实现error接口
func (e *ForensicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *ForensicError) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断是否可重试
func (e *ForensicError) IsRetryable() bool {
	return e.Retryable
}

// IsRecoverable 判断是否可在本地吸收（跳过并记录）
func (e *ForensicError) IsRecoverable() bool {
	return e.Type == ErrorTypeValidation || e.Type == ErrorTypeDecode
}

// WithAddress 附加地址信息
func (e *ForensicError) WithAddress(address string) *ForensicError {
	e.Address = &address
	return e
}

// WithTxHash 附加交易哈希
func (e *ForensicError) WithTxHash(txHash string) *ForensicError {
	e.TxHash = &txHash
	return e
}

// WithBlockNumber 附加区块号
func (e *ForensicError) WithBlockNumber(blockNumber uint64) *ForensicError {
	e.BlockNumber = &blockNumber
	return e
}

// New 创建新的错误
func New(errorType ErrorType, severity ErrorSeverity, code, message string) *ForensicError {
	return &ForensicError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: determineRetryable(errorType),
	}
}

// Wrap 包装现有错误
func Wrap(err error, errorType ErrorType, severity ErrorSeverity, code, message string) *ForensicError {
	return &ForensicError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
		Retryable: determineRetryable(errorType),
	}
}

// determineRetryable 根据错误类型判断是否可重试
func determineRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeExplorer:
		return true
	case ErrorTypeStorageRead:
		// 存储读取由失效转移层重试，核心层视为阶段致命
		return false
	default:
		return false
	}
}

// NewValidationError 地址/哈希校验错误（跳过并记录，不中止）
func NewValidationError(message string) *ForensicError {
	return New(ErrorTypeValidation, SeverityLow, "VALIDATION_FAILED", message)
}

// NewDecodeError 输入解码错误（降级为unknown分类）
func NewDecodeError(message string, cause error) *ForensicError {
	return Wrap(cause, ErrorTypeDecode, SeverityLow, "DECODE_FAILED", message)
}

// NewStorageReadError 状态快照读取错误（阶段致命）
func NewStorageReadError(message string, cause error) *ForensicError {
	return Wrap(cause, ErrorTypeStorageRead, SeverityHigh, "STORAGE_READ_FAILED", message)
}

// NewTransportError 协作方传输错误
func NewTransportError(message string, cause error) *ForensicError {
	return Wrap(cause, ErrorTypeTransport, SeverityHigh, "TRANSPORT_FAILED", message)
}

// NewRateLimitError 节点速率限制错误
func NewRateLimitError(nodeName string, cause error) *ForensicError {
	return Wrap(cause, ErrorTypeRateLimit, SeverityMedium, "RATE_LIMIT_EXCEEDED",
		fmt.Sprintf("节点 %s 达到速率限制", nodeName))
}

// IsValidation 判断错误链中是否存在校验错误
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsDecode 判断错误链中是否存在解码错误
func IsDecode(err error) bool {
	return isType(err, ErrorTypeDecode)
}

// IsStorageRead 判断错误链中是否存在存储读取错误
func IsStorageRead(err error) bool {
	return isType(err, ErrorTypeStorageRead)
}

// IsTransport 判断错误链中是否存在传输错误
func IsTransport(err error) bool {
	return isType(err, ErrorTypeTransport)
}

func isType(err error, errorType ErrorType) bool {
	var fe *ForensicError
	if stderrors.As(err, &fe) {
		return fe.Type == errorType
	}
	return false
}

// 错误类型字符串映射
var errorTypeNames = map[ErrorType]string{
	ErrorTypeValidation:  "Validation",
	ErrorTypeDecode:      "Decode",
	ErrorTypeStorageRead: "StorageRead",
	ErrorTypeTransport:   "Transport",
	ErrorTypeRateLimit:   "RateLimit",
	ErrorTypeExplorer:    "Explorer",
	ErrorTypeCheckpoint:  "Checkpoint",
	ErrorTypeConfig:      "Config",
}

// String 返回错误类型的字符串表示
func (et ErrorType) String() string {
	if name, exists := errorTypeNames[et]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", et)
}

// 严重级别字符串映射
var severityNames = map[ErrorSeverity]string{
	SeverityLow:      "Low",
	SeverityMedium:   "Medium",
	SeverityHigh:     "High",
	SeverityCritical: "Critical",
}

// String 返回严重级别的字符串表示
func (es ErrorSeverity) String() string {
	if name, exists := severityNames[es]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", es)
}
