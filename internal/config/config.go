package config

import (
	"fmt"
	"os"

	"hackscan/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 主配置
type Config struct {
	Blockchain *BlockchainConfig  `mapstructure:"blockchain"`
	Explorer   *ExplorerConfig    `mapstructure:"explorer"`
	Analyzer   *AnalyzerConfig    `mapstructure:"analyzer"`
	Output     *OutputConfig      `mapstructure:"output"`
	Logging    *logging.LogConfig `mapstructure:"logging"`
}

// BlockchainConfig 区块链配置
type BlockchainConfig struct {
	Nodes []*NodeConfig `mapstructure:"nodes"`
}

// NodeConfig 节点配置
// Priority数值越小，失效转移时越优先使用
type NodeConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Type     string `mapstructure:"type"`
	Priority int    `mapstructure:"priority"`
}

// ExplorerConfig 区块浏览器API配置
type ExplorerConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	APITimeout string `mapstructure:"api_timeout"`
}

// AnalyzerConfig 取证分析器配置
type AnalyzerConfig struct {
	SampleStride        uint64 `mapstructure:"sample_stride"`        // 实现历史采样步长（区块数）
	MaxContracts        int    `mapstructure:"max_contracts"`        // 爬取合约数上限，0为不限制
	KnownImplementation string `mapstructure:"known_implementation"` // 已知的合法实现地址
	CheckpointPath      string `mapstructure:"checkpoint_path"`      // 检查点数据库路径
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string          `mapstructure:"brokers"`
	Topics  map[string]string `mapstructure:"topics"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format    string       `mapstructure:"format"`
	Directory string       `mapstructure:"directory"`
	Kafka     *KafkaConfig `mapstructure:"kafka"`
}

// UseKafka 是否按配置将报告发布到Kafka
func (o *OutputConfig) UseKafka() bool {
	return o != nil && o.Format == "kafka" && o.Kafka != nil && len(o.Kafka.Brokers) > 0
}

// LoadConfig 加载配置（自动检测配置源）
func LoadConfig(configPath string) (*Config, error) {
	// 首先尝试从环境变量获取数据库配置
	dbDSN := os.Getenv("HACKSCAN_DB_DSN")
	if dbDSN != "" {
		logger := logrus.New()
		dbConfig, err := NewDatabaseConfig(dbDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}
		defer dbConfig.Close()

		config, err := dbConfig.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("从数据库加载配置失败: %w", err)
		}

		logger.Info("已从数据库加载配置")
		return config, nil
	}

	return LoadConfigFromFile(configPath)
}

// LoadConfigFromFile 从文件加载配置
func LoadConfigFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults 补充未配置项的默认值
func applyDefaults(config *Config) {
	defaults := GetDefaultConfig()

	if config.Explorer == nil {
		config.Explorer = defaults.Explorer
	}
	if config.Analyzer == nil {
		config.Analyzer = defaults.Analyzer
	}
	if config.Analyzer.SampleStride == 0 {
		config.Analyzer.SampleStride = defaults.Analyzer.SampleStride
	}
	if config.Analyzer.CheckpointPath == "" {
		config.Analyzer.CheckpointPath = defaults.Analyzer.CheckpointPath
	}
	if config.Output == nil {
		config.Output = defaults.Output
	}
	if config.Logging == nil {
		config.Logging = defaults.Logging
	}
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Blockchain: &BlockchainConfig{
			Nodes: []*NodeConfig{
				{
					Name:     "local_node",
					URL:      "", // 需要在YAML配置或数据库中指定
					Type:     "local",
					Priority: 1,
				},
			},
		},
		Explorer: &ExplorerConfig{
			BaseURL:    "https://api.etherscan.io/api",
			APIKey:     "",
			APITimeout: "10s",
		},
		Analyzer: &AnalyzerConfig{
			SampleStride:   1000,
			MaxContracts:   0, // 不限制，忠实复现无界爬取
			CheckpointPath: "./data/checkpoints.db",
		},
		Output: &OutputConfig{
			Format:    "json",
			Directory: "./reports",
			Kafka: &KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topics: map[string]string{
					"reports":            "forensic_reports",
					"suspicious_actions": "forensic_suspicious_actions",
				},
			},
		},
		Logging: &logging.LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
