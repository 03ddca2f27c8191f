package classifier

import (
	"strings"

	forensicerrors "hackscan/internal/errors"
	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// 分类结果中的方法名
const (
	MethodUpgradeTo        = "UPGRADE_TO"
	MethodUpgradeToAndCall = "UPGRADE_TO_AND_CALL"
	MethodChangeAdmin      = "CHANGE_ADMIN"
	MethodInitialize       = "INITIALIZE"
	MethodUnknown          = "unknown"
)

// ReasonSuspiciousSignature 可疑函数签名的标记原因
const ReasonSuspiciousSignature = "suspicious_signature"

// paramSpec 参数定义
type paramSpec struct {
	Name string
	Type string
}

// methodSchema 已知函数选择器的签名定义
type methodSchema struct {
	Name       string
	Suspicious bool
	Params     []paramSpec
}

// knownSelectors 代理升级相关的函数选择器表
var knownSelectors = map[string]methodSchema{
	"3659cfe6": {
		Name:       MethodUpgradeTo,
		Suspicious: true,
		Params:     []paramSpec{{Name: "newImplementation", Type: "address"}},
	},
	"4f1ef286": {
		Name:       MethodUpgradeToAndCall,
		Suspicious: true,
		Params: []paramSpec{
			{Name: "newImplementation", Type: "address"},
			{Name: "data", Type: "bytes"},
		},
	},
	"8f283970": {
		Name:       MethodChangeAdmin,
		Suspicious: true,
		Params:     []paramSpec{{Name: "newAdmin", Type: "address"}},
	},
	"8129fc1c": {
		Name:       MethodInitialize,
		Suspicious: false,
	},
}

// Classifier 交易输入数据分类器
type Classifier struct {
	logger *logrus.Logger
}

// NewClassifier 创建分类器
func NewClassifier(logger *logrus.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify 分类交易并就地填充方法、参数和可疑标记
func (c *Classifier) Classify(tx *models.Transaction) {
	input := strings.TrimPrefix(strings.ToLower(tx.Input), "0x")

	// 不足4字节的输入不构成合约调用
	if len(input) < 8 {
		tx.Method = MethodUnknown
		return
	}

	selector := input[:8]
	schema, ok := knownSelectors[selector]
	if !ok {
		tx.Method = MethodUnknown
		return
	}

	tx.Method = schema.Name
	if schema.Suspicious {
		tx.Suspicious = true
		tx.AddReason(ReasonSuspiciousSignature)
	}

	if len(schema.Params) == 0 {
		return
	}

	params, err := decodeParameters(input[8:], schema.Params)
	if err != nil {
		// 参数解码失败时方法名降级为unknown并丢弃参数，可疑判定保留
		c.logger.WithFields(logrus.Fields{
			"tx_hash":  tx.Hash,
			"selector": selector,
		}).WithError(err).Warn("调用参数解码失败")
		tx.Method = MethodUnknown
		tx.DecodedParams = nil
		return
	}
	tx.DecodedParams = params
}

// decodeParameters 按32字节字逐个解码静态参数
func decodeParameters(data string, specs []paramSpec) (map[string]string, error) {
	params := make(map[string]string, len(specs))

	for i, spec := range specs {
		offset := i * 64
		if offset+64 > len(data) {
			return nil, forensicerrors.NewDecodeError("参数数据长度不足", nil)
		}
		word := data[offset : offset+64]

		switch spec.Type {
		case "address":
			// 地址参数的高12字节必须为零
			if !strings.HasPrefix(word, strings.Repeat("0", 24)) {
				return nil, forensicerrors.NewDecodeError("地址参数格式异常", nil)
			}
			params[spec.Name] = "0x" + word[24:]
		case "bytes":
			// 动态参数仅记录偏移所在的字，完整内容不参与取证判定
			params[spec.Name] = "0x" + word
		default:
			params[spec.Name] = "0x" + word
		}
	}

	return params, nil
}
