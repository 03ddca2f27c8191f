package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const checkpointBucket = "checkpoints"

// Snapshot 检查点快照
type Snapshot struct {
	Label     string          `json:"label"`
	SavedAt   time.Time       `json:"saved_at"`
	Report    json.RawMessage `json:"report"`
	LastError string          `json:"last_error,omitempty"`
}

// Manager 分析检查点管理器
// 每个阶段完成后保存一次快照，同名检查点覆盖写入
type Manager struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// NewManager 打开检查点数据库
func NewManager(path string, logger *logrus.Logger) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建检查点目录失败: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开检查点数据库失败: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化检查点存储失败: %w", err)
	}

	return &Manager{db: db, logger: logger}, nil
}

// Close 关闭检查点数据库
func (m *Manager) Close() error {
	return m.db.Close()
}

// Save 保存检查点，同一标签重复保存时覆盖旧快照
func (m *Manager) Save(label string, report any) error {
	return m.save(label, report, "")
}

// SaveWithError 保存携带错误信息的检查点
func (m *Manager) SaveWithError(label string, report any, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return m.save(label, report, msg)
}

func (m *Manager) save(label string, report any, lastError string) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}

	snapshot := Snapshot{
		Label:     label,
		SavedAt:   time.Now().UTC(),
		Report:    reportJSON,
		LastError: lastError,
	}

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}

	err = m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(checkpointBucket)).Put([]byte(label), data)
	})
	if err != nil {
		return fmt.Errorf("写入检查点失败: %w", err)
	}

	m.logger.WithField("label", label).Info("检查点已保存")
	return nil
}

// Load 加载指定标签的检查点，不存在时返回nil
func (m *Manager) Load(label string) (*Snapshot, error) {
	var snapshot *Snapshot
	err := m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(checkpointBucket)).Get([]byte(label))
		if data == nil {
			return nil
		}
		snapshot = &Snapshot{}
		return json.Unmarshal(data, snapshot)
	})
	if err != nil {
		return nil, fmt.Errorf("读取检查点失败: %w", err)
	}
	return snapshot, nil
}

// Labels 列出所有检查点标签
func (m *Manager) Labels() ([]string, error) {
	var labels []string
	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(checkpointBucket)).ForEach(func(k, _ []byte) error {
			labels = append(labels, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("列出检查点失败: %w", err)
	}
	return labels, nil
}
