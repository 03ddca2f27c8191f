package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// FileWriter 报告文件输出器
type FileWriter struct {
	directory string
	logger    *logrus.Logger
}

// NewFileWriter 创建文件输出器
func NewFileWriter(directory string, logger *logrus.Logger) (*FileWriter, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &FileWriter{
		directory: directory,
		logger:    logger,
	}, nil
}

// WriteJSON 将报告写入JSON文件，返回文件路径
func (w *FileWriter) WriteJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化报告失败: %w", err)
	}

	path := filepath.Join(w.directory, fmt.Sprintf("report_%s.json", timestamp()))
	if err := w.writeFile(path, append(data, '\n')); err != nil {
		return "", err
	}

	w.logger.WithField("path", path).Info("JSON报告已生成")
	return path, nil
}

// WriteText 将报告写入可读文本文件，返回文件路径
func (w *FileWriter) WriteText(report *models.Report) (string, error) {
	path := filepath.Join(w.directory, fmt.Sprintf("report_%s.txt", timestamp()))
	if err := w.writeFile(path, []byte(FormatText(report))); err != nil {
		return "", err
	}

	w.logger.WithField("path", path).Info("文本报告已生成")
	return path, nil
}

func (w *FileWriter) writeFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("创建报告文件失败: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}
	return file.Sync()
}

func timestamp() string {
	return time.Now().Format("20060102_150405")
}

// FormatText 按固定章节顺序渲染文本报告
// 章节顺序：元数据、状态变更、可疑操作、关联合约、实现历史
func FormatText(report *models.Report) string {
	var b strings.Builder

	b.WriteString("==== 调查报告 ====\n\n")
	b.WriteString("-- 元数据 --\n")
	fmt.Fprintf(&b, "分析时间: %s\n", report.Metadata.AnalyzedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "攻击交易: %s\n", report.Metadata.HackTransaction)
	fmt.Fprintf(&b, "受害合约: %s\n", report.Metadata.VictimContract)
	fmt.Fprintf(&b, "攻击者地址: %s\n", report.Metadata.HackerAddress)
	if report.Metadata.KnownImplementation != "" {
		fmt.Fprintf(&b, "已知实现: %s\n", report.Metadata.KnownImplementation)
	}

	b.WriteString("\n-- 状态变更 --\n")
	changes := report.Analysis.HackDetails.StateChanges
	if changes == nil {
		b.WriteString("无状态变更记录\n")
	} else {
		if changes.Before != nil {
			fmt.Fprintf(&b, "变更前实现: %s (区块 %d)\n", changes.Before.Implementation, changes.Before.BlockNumber)
			fmt.Fprintf(&b, "变更前管理员: %s\n", changes.Before.Admin)
		}
		if changes.After != nil {
			fmt.Fprintf(&b, "变更后实现: %s (区块 %d)\n", changes.After.Implementation, changes.After.BlockNumber)
			fmt.Fprintf(&b, "变更后管理员: %s\n", changes.After.Admin)
		}
		fmt.Fprintf(&b, "实现已变更: %t\n", changes.ImplementationChanged)
		fmt.Fprintf(&b, "管理员已变更: %t\n", changes.AdminChanged)
	}

	b.WriteString("\n-- 可疑操作 --\n")
	if len(report.Analysis.SuspiciousActions) == 0 {
		b.WriteString("未发现可疑操作\n")
	}
	for _, tx := range report.Analysis.SuspiciousActions {
		fmt.Fprintf(&b, "[区块 %d] %s 方法=%s 发起方=%s 原因=%s\n",
			tx.BlockNumber, tx.Hash, tx.Method, tx.From, strings.Join(tx.Reasons, ","))
	}

	b.WriteString("\n-- 关联合约 --\n")
	if len(report.Analysis.RelatedContracts) == 0 {
		b.WriteString("未发现关联合约\n")
	}
	for _, addr := range report.Analysis.RelatedContracts {
		fmt.Fprintf(&b, "%s\n", addr)
	}

	b.WriteString("\n-- 实现历史 --\n")
	if len(report.Analysis.ImplementationHistory) == 0 {
		b.WriteString("无实现历史采样记录\n")
	}
	for _, s := range report.Analysis.ImplementationHistory {
		fmt.Fprintf(&b, "[区块 %d] %s\n", s.BlockNumber, s.Implementation)
	}

	return b.String()
}
