package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CheckpointLister 检查点标签查询接口
type CheckpointLister interface {
	Labels() ([]string, error)
}

// Server 报告查询API服务
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	reportDir   string
	checkpoints CheckpointLister
	logManager  *LogManager
	logger      *logrus.Logger
}

// NewServer 创建API服务
func NewServer(addr, reportDir string, checkpoints CheckpointLister, logManager *LogManager, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		router:      router,
		reportDir:   reportDir,
		checkpoints: checkpoints,
		logManager:  logManager,
		logger:      logger,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/:name", s.handleGetReport)
		v1.GET("/checkpoints", s.handleListCheckpoints)
		v1.GET("/logs", s.handleGetLogs)
	}
}

// Start 启动HTTP服务
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API服务已启动")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅停止HTTP服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleListReports 列出已生成的报告文件
func (s *Server) handleListReports(c *gin.Context) {
	entries, err := os.ReadDir(s.reportDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取报告目录失败"})
		return
	}

	var reports []gin.H
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "report_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, gin.H{
			"name":     entry.Name(),
			"size":     info.Size(),
			"modified": info.ModTime(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// handleGetReport 下载指定报告文件
func (s *Server) handleGetReport(c *gin.Context) {
	name := c.Param("name")

	// 拒绝路径穿越
	if name != filepath.Base(name) || !strings.HasPrefix(name, "report_") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "报告名称非法"})
		return
	}

	path := filepath.Join(s.reportDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "报告不存在"})
		return
	}

	c.File(path)
}

// handleListCheckpoints 列出检查点标签
func (s *Server) handleListCheckpoints(c *gin.Context) {
	if s.checkpoints == nil {
		c.JSON(http.StatusOK, gin.H{"checkpoints": []string{}})
		return
	}

	labels, err := s.checkpoints.Labels()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取检查点失败"})
		return
	}
	if labels == nil {
		labels = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"checkpoints": labels})
}

// handleGetLogs 查询最近的日志
func (s *Server) handleGetLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	c.JSON(http.StatusOK, gin.H{"logs": s.logManager.Recent(limit)})
}
