package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// NewLogger 根据配置创建日志器
func NewLogger(config *LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	if err := Apply(logger, config); err != nil {
		return nil, err
	}
	return logger, nil
}

// Apply 将配置应用到已有日志器
// 配置为空时使用info级别的JSON输出
func Apply(logger *logrus.Logger, config *LogConfig) error {
	if config == nil {
		config = &LogConfig{Level: "info", Format: "json", Output: "stdout"}
	}

	level, err := parseLevel(config.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if config.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	output, err := resolveOutput(config)
	if err != nil {
		return err
	}
	logger.SetOutput(output)

	return nil
}

func parseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("未知的日志级别: %s", level)
	}
}

func resolveOutput(config *LogConfig) (io.Writer, error) {
	switch config.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		if config.File == "" {
			return nil, fmt.Errorf("文件输出需要指定file路径")
		}
		file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		return file, nil
	default:
		return nil, fmt.Errorf("未知的日志输出目标: %s", config.Output)
	}
}
