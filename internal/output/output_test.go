package output

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.Report {
	report := models.NewReport(
		"0xabababababababababababababababababababababababababababababababab",
		"0x2222222222222222222222222222222222222222",
		"0x1111111111111111111111111111111111111111",
		"0x3333333333333333333333333333333333333333",
	)
	report.Analysis.HackDetails.StateChanges = models.NewStateChanges(
		&models.ContractState{BlockNumber: 99, Implementation: "0x3333333333333333333333333333333333333333"},
		&models.ContractState{BlockNumber: 100, Implementation: "0x4444444444444444444444444444444444444444"},
	)
	report.AddSuspiciousAction(&models.Transaction{
		Hash:        "0xsus",
		BlockNumber: 100,
		From:        "0x1111111111111111111111111111111111111111",
		Method:      "UPGRADE_TO",
		Reasons:     []string{"suspicious_signature"},
	})
	report.AddRelatedContract("0x2222222222222222222222222222222222222222")
	report.AddImplementationSighting(&models.ImplementationSighting{
		BlockNumber:    1000,
		Implementation: "0x4444444444444444444444444444444444444444",
	})
	report.Finalize()
	return report
}

func TestWriteJSON(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	writer, err := NewFileWriter(t.TempDir(), logger)
	require.NoError(t, err)

	path, err := writer.WriteJSON(sampleReport())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var restored models.Report
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "0x2222222222222222222222222222222222222222", restored.Metadata.VictimContract)
	assert.Len(t, restored.Analysis.SuspiciousActions, 1)
}

func TestWriteText(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	writer, err := NewFileWriter(t.TempDir(), logger)
	require.NoError(t, err)

	path, err := writer.WriteText(sampleReport())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0xsus")
}

func TestFormatTextSectionOrder(t *testing.T) {
	text := FormatText(sampleReport())

	sections := []string{
		"-- 元数据 --",
		"-- 状态变更 --",
		"-- 可疑操作 --",
		"-- 关联合约 --",
		"-- 实现历史 --",
	}

	// 章节顺序固定
	last := -1
	for _, section := range sections {
		idx := strings.Index(text, section)
		require.GreaterOrEqual(t, idx, 0, "缺少章节: %s", section)
		assert.Greater(t, idx, last)
		last = idx
	}

	assert.Contains(t, text, "实现已变更: true")
	assert.Contains(t, text, "[区块 1000] 0x4444444444444444444444444444444444444444")
}

func TestFormatTextEmptyReport(t *testing.T) {
	report := models.NewReport("0xtx", "0xvictim", "0xhacker", "")
	text := FormatText(report)

	assert.Contains(t, text, "无状态变更记录")
	assert.Contains(t, text, "未发现可疑操作")
	assert.Contains(t, text, "未发现关联合约")
	assert.Contains(t, text, "无实现历史采样记录")
}
