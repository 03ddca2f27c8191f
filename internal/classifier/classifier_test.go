package classifier

import (
	"strings"
	"testing"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewClassifier(logger)
}

func TestClassifyUpgradeTo(t *testing.T) {
	c := newTestClassifier()

	tx := &models.Transaction{
		Hash:  "0xabc",
		Input: "0x3659cfe6" + strings.Repeat("0", 24) + "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	}
	c.Classify(tx)

	assert.Equal(t, MethodUpgradeTo, tx.Method)
	assert.True(t, tx.Suspicious)
	assert.Equal(t, []string{ReasonSuspiciousSignature}, tx.Reasons)
	assert.Equal(t, "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", tx.DecodedParams["newImplementation"])
}

func TestClassifyChangeAdmin(t *testing.T) {
	c := newTestClassifier()

	tx := &models.Transaction{
		Input: "0x8f283970" + strings.Repeat("0", 24) + "1111111111111111111111111111111111111111",
	}
	c.Classify(tx)

	assert.Equal(t, MethodChangeAdmin, tx.Method)
	assert.True(t, tx.Suspicious)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", tx.DecodedParams["newAdmin"])
}

func TestClassifyInitializeNotSuspicious(t *testing.T) {
	c := newTestClassifier()

	tx := &models.Transaction{Input: "0x8129fc1c"}
	c.Classify(tx)

	assert.Equal(t, MethodInitialize, tx.Method)
	assert.False(t, tx.Suspicious)
	assert.Empty(t, tx.Reasons)
}

func TestClassifyShortInputNotContractCall(t *testing.T) {
	c := newTestClassifier()

	// 不足4字节的输入不构成合约调用，方法归入unknown且不可疑
	for _, input := range []string{"", "0x", "0x00", "0x3659cf"} {
		tx := &models.Transaction{Input: input}
		c.Classify(tx)
		assert.Equal(t, MethodUnknown, tx.Method, "input: %q", input)
		assert.False(t, tx.Suspicious)
	}
}

func TestClassifyUnknownSelector(t *testing.T) {
	c := newTestClassifier()

	tx := &models.Transaction{Input: "0xa9059cbb" + strings.Repeat("0", 128)}
	c.Classify(tx)

	assert.Equal(t, MethodUnknown, tx.Method)
	assert.False(t, tx.Suspicious)
}

func TestClassifyDecodeFailureDowngradesMethod(t *testing.T) {
	c := newTestClassifier()

	// 参数不足32字节：方法降级为unknown，选择器决定的可疑判定保留
	truncated := &models.Transaction{Input: "0x3659cfe6" + "1234"}
	c.Classify(truncated)
	assert.Equal(t, MethodUnknown, truncated.Method)
	assert.True(t, truncated.Suspicious)
	assert.Equal(t, []string{ReasonSuspiciousSignature}, truncated.Reasons)
	assert.Nil(t, truncated.DecodedParams)

	// 地址字高位不为零，同样降级并丢弃参数
	malformed := &models.Transaction{Input: "0x8f283970" + strings.Repeat("f", 64)}
	c.Classify(malformed)
	assert.Equal(t, MethodUnknown, malformed.Method)
	assert.True(t, malformed.Suspicious)
	assert.Nil(t, malformed.DecodedParams)

	// 解码失败还会清除上一轮分类留下的参数
	stale := &models.Transaction{
		Input:         "0x3659cfe6" + "1234",
		DecodedParams: map[string]string{"newImplementation": "0xold"},
	}
	c.Classify(stale)
	assert.Equal(t, MethodUnknown, stale.Method)
	assert.Nil(t, stale.DecodedParams)
}

func TestClassifyUpgradeToAndCall(t *testing.T) {
	c := newTestClassifier()

	input := "0x4f1ef286" +
		strings.Repeat("0", 24) + "2222222222222222222222222222222222222222" +
		strings.Repeat("0", 62) + "40"
	tx := &models.Transaction{Input: input}
	c.Classify(tx)

	assert.Equal(t, MethodUpgradeToAndCall, tx.Method)
	assert.True(t, tx.Suspicious)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tx.DecodedParams["newImplementation"])
}

func TestClassifyReasonNotDuplicated(t *testing.T) {
	c := newTestClassifier()

	tx := &models.Transaction{Input: "0x8129fc1c"}
	tx.Suspicious = true
	tx.AddReason(ReasonSuspiciousSignature)

	c.Classify(tx)
	tx.Input = "0x3659cfe6" + strings.Repeat("0", 64)
	c.Classify(tx)

	assert.Equal(t, []string{ReasonSuspiciousSignature}, tx.Reasons)
}
