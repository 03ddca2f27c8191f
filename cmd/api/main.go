package main

import (
	"context"
	"os"
	"time"

	"hackscan/internal/api"
	"hackscan/internal/checkpoint"
	"hackscan/internal/config"
	"hackscan/internal/logging"
	"hackscan/internal/shutdown"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	listenAddr string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hackscan-api",
		Short: "取证报告查询API服务",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "监听地址")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Error("加载配置失败")
		return err
	}
	if err := logging.Apply(logger, cfg.Logging); err != nil {
		logger.WithError(err).Error("应用日志配置失败")
		return err
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logManager := api.NewLogManager(1000)
	logger.AddHook(api.NewLogHook(logManager))

	checkpoints, err := checkpoint.NewManager(cfg.Analyzer.CheckpointPath, logger)
	if err != nil {
		logger.WithError(err).Error("初始化检查点存储失败")
		return err
	}

	server := api.NewServer(listenAddr, cfg.Output.Directory, checkpoints, logManager, logger)

	manager := shutdown.NewManager(30*time.Second, logger)
	manager.Register("api_server", shutdown.OrderAPI, server.Shutdown)
	manager.Register("checkpoint_store", shutdown.OrderCheckpoint, func(ctx context.Context) error {
		return checkpoints.Close()
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("API服务异常退出")
			manager.Trigger()
		}
	}()

	manager.Wait()
	return nil
}
