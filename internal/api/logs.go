package api

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry 日志条目
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogManager 内存日志环形缓冲
type LogManager struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
}

// NewLogManager 创建日志缓冲管理器
func NewLogManager(maxSize int) *LogManager {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &LogManager{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add 追加日志条目，超出容量时淘汰最旧的条目
func (m *LogManager) Add(entry LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxSize {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, entry)
}

// Recent 返回最近的日志条目
func (m *LogManager) Recent(limit int) []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}

	result := make([]LogEntry, limit)
	copy(result, m.entries[len(m.entries)-limit:])
	return result
}

// LogHook 将logrus日志镜像到缓冲区的钩子
type LogHook struct {
	manager *LogManager
}

// NewLogHook 创建日志钩子
func NewLogHook(manager *LogManager) *LogHook {
	return &LogHook{manager: manager}
}

// Levels 钩子覆盖的日志级别
func (h *LogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 写入一条日志
func (h *LogHook) Fire(entry *logrus.Entry) error {
	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		fields[k] = v
	}

	h.manager.Add(LogEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    fields,
	})
	return nil
}
