package config

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DatabaseConfig 数据库配置源
type DatabaseConfig struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewDatabaseConfig 创建数据库配置源
func NewDatabaseConfig(dsn string, logger *logrus.Logger) (*DatabaseConfig, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	return &DatabaseConfig{
		db:     db,
		logger: logger,
	}, nil
}

// Close 关闭数据库连接
func (d *DatabaseConfig) Close() error {
	return d.db.Close()
}

// LoadConfig 从数据库加载完整配置
func (d *DatabaseConfig) LoadConfig() (*Config, error) {
	config := GetDefaultConfig()

	nodes, err := d.loadNodes()
	if err != nil {
		return nil, err
	}
	if len(nodes) > 0 {
		config.Blockchain.Nodes = nodes
	}

	if err := d.loadAnalyzerConfig(config.Analyzer); err != nil {
		return nil, err
	}

	if err := d.loadOutputConfig(config.Output); err != nil {
		return nil, err
	}

	return config, nil
}

// loadNodes 加载节点列表
func (d *DatabaseConfig) loadNodes() ([]*NodeConfig, error) {
	rows, err := d.db.Query(`
		SELECT name, url, type, priority
		FROM forensic_nodes
		WHERE enabled = true
		ORDER BY priority`)
	if err != nil {
		return nil, fmt.Errorf("查询节点配置失败: %w", err)
	}
	defer rows.Close()

	var nodes []*NodeConfig
	for rows.Next() {
		node := &NodeConfig{}
		if err := rows.Scan(&node.Name, &node.URL, &node.Type, &node.Priority); err != nil {
			return nil, fmt.Errorf("读取节点配置失败: %w", err)
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// loadAnalyzerConfig 加载分析器键值配置
func (d *DatabaseConfig) loadAnalyzerConfig(cfg *AnalyzerConfig) error {
	rows, err := d.db.Query(`SELECT key, value FROM analyzer_config`)
	if err != nil {
		return fmt.Errorf("查询分析器配置失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("读取分析器配置失败: %w", err)
		}

		switch key {
		case "sample_stride":
			var stride uint64
			if _, err := fmt.Sscanf(value, "%d", &stride); err == nil && stride > 0 {
				cfg.SampleStride = stride
			}
		case "max_contracts":
			var max int
			if _, err := fmt.Sscanf(value, "%d", &max); err == nil {
				cfg.MaxContracts = max
			}
		case "known_implementation":
			cfg.KnownImplementation = value
		case "checkpoint_path":
			cfg.CheckpointPath = value
		default:
			d.logger.WithField("key", key).Warn("未知的分析器配置项，已忽略")
		}
	}

	return rows.Err()
}

// loadOutputConfig 加载输出配置
func (d *DatabaseConfig) loadOutputConfig(cfg *OutputConfig) error {
	rows, err := d.db.Query(`SELECT key, value FROM output_config`)
	if err != nil {
		return fmt.Errorf("查询输出配置失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("读取输出配置失败: %w", err)
		}

		switch key {
		case "format":
			cfg.Format = value
		case "directory":
			cfg.Directory = value
		case "kafka_brokers":
			cfg.Kafka.Brokers = []string{value}
		}
	}

	return rows.Err()
}
