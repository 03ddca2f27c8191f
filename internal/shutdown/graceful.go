package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// 关闭顺序常量，数值越小越先执行
const (
	OrderAPI        = 10 // 先停止对外服务
	OrderAnalyzer   = 20 // 再停止分析流程
	OrderOutput     = 30 // 然后刷新输出
	OrderCheckpoint = 40 // 最后关闭检查点存储
)

// ShutdownFunc 关闭回调
type ShutdownFunc struct {
	Name  string
	Order int
	Fn    func(ctx context.Context) error
}

// Manager 优雅关闭管理器
type Manager struct {
	mu      sync.Mutex
	funcs   []ShutdownFunc
	timeout time.Duration
	logger  *logrus.Logger
	done    chan struct{}
	once    sync.Once
}

// NewManager 创建关闭管理器
func NewManager(timeout time.Duration, logger *logrus.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Register 注册关闭回调
func (m *Manager) Register(name string, order int, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, ShutdownFunc{Name: name, Order: order, Fn: fn})
}

// Wait 阻塞等待关闭信号并执行所有回调
func (m *Manager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		m.logger.WithField("signal", sig.String()).Info("收到关闭信号")
	case <-m.done:
	}

	m.Shutdown()
}

// Trigger 主动触发关闭
func (m *Manager) Trigger() {
	m.once.Do(func() { close(m.done) })
}

// Shutdown 按注册顺序执行所有关闭回调
func (m *Manager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	funcs := make([]ShutdownFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	sort.SliceStable(funcs, func(i, j int) bool {
		return funcs[i].Order < funcs[j].Order
	})

	for _, f := range funcs {
		m.logger.WithField("component", f.Name).Info("正在关闭组件")
		if err := f.Fn(ctx); err != nil {
			m.logger.WithField("component", f.Name).WithError(err).Error("组件关闭失败")
		}
	}

	m.logger.Info("所有组件已关闭")
}
