package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackscan/internal/chain"
	"hackscan/internal/checkpoint"
	"hackscan/internal/classifier"
	"hackscan/internal/config"
	"hackscan/internal/crawler"
	"hackscan/internal/explorer"
	"hackscan/internal/inspector"
	"hackscan/internal/logging"
	"hackscan/internal/output"
	"hackscan/internal/report"
	"hackscan/internal/sampler"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	txHash     string
	victim     string
	suspect    string
	knownImpl  string
	outputDir  string
	useKafka   bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hackscan",
		Short: "代理合约攻击取证分析工具",
		Long:  "以攻击交易为起点，重建代理升级攻击的完整过程：状态变更、可疑操作、关联合约和实现历史。",
		RunE:  runAnalysis,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.Flags().StringVar(&txHash, "tx", "", "攻击交易哈希（必填）")
	rootCmd.Flags().StringVar(&victim, "victim", "", "受害代理合约地址（必填）")
	rootCmd.Flags().StringVar(&suspect, "suspect", "", "攻击者地址（必填）")
	rootCmd.Flags().StringVar(&knownImpl, "known-impl", "", "已知的合法实现地址")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "报告输出目录（覆盖配置文件）")
	rootCmd.Flags().BoolVar(&useKafka, "kafka", false, "同时将报告发布到Kafka（等效于配置output.format: kafka）")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.MarkFlagRequired("tx")
	rootCmd.MarkFlagRequired("victim")
	rootCmd.MarkFlagRequired("suspect")

	rootCmd.AddCommand(newCheckpointCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	logger := newLogger()

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
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	if knownImpl == "" {
		knownImpl = cfg.Analyzer.KnownImplementation
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(cfg.Blockchain, logger)
	if err != nil {
		logger.WithError(err).Error("初始化链客户端失败")
		return err
	}
	defer chainClient.Close()

	apiTimeout, err := time.ParseDuration(cfg.Explorer.APITimeout)
	if err != nil {
		apiTimeout = 10 * time.Second
	}
	explorerClient := explorer.NewClient(cfg.Explorer.BaseURL, cfg.Explorer.APIKey, apiTimeout, logger)

	checkpoints, err := checkpoint.NewManager(cfg.Analyzer.CheckpointPath, logger)
	if err != nil {
		logger.WithError(err).Error("初始化检查点存储失败")
		return err
	}
	defer checkpoints.Close()

	stateInspector := inspector.NewInspector(chainClient, logger)
	cls := classifier.NewClassifier(logger)
	analyzer := classifier.NewTraceAnalyzer(chainClient, cls, logger)
	graphCrawler := crawler.NewCrawler(explorerClient, chainClient, cls, cfg.Analyzer.MaxContracts, logger)
	historySampler := sampler.NewSampler(chainClient, stateInspector, cfg.Analyzer.SampleStride, logger)

	assembler := report.NewAssembler(
		chainClient,
		explorerClient,
		stateInspector,
		explorerClient,
		graphCrawler,
		historySampler,
		checkpoints,
		cls,
		analyzer,
		logger,
	)

	result, err := assembler.Assemble(ctx, txHash, victim, suspect, knownImpl)
	if err != nil {
		logger.WithError(err).Error("分析流程失败")
		return err
	}

	writer, err := output.NewFileWriter(cfg.Output.Directory, logger)
	if err != nil {
		logger.WithError(err).Error("初始化输出目录失败")
		return err
	}

	if _, err := writer.WriteJSON(result); err != nil {
		logger.WithError(err).Error("写入JSON报告失败")
		return err
	}
	if _, err := writer.WriteText(result); err != nil {
		logger.WithError(err).Error("写入文本报告失败")
		return err
	}

	if cfg.Output.UseKafka() || (useKafka && cfg.Output.Kafka != nil) {
		kafkaWriter, err := output.NewKafkaWriter(cfg.Output.Kafka, logger)
		if err != nil {
			logger.WithError(err).Error("初始化Kafka发布器失败")
			return err
		}
		defer kafkaWriter.Close()

		if err := kafkaWriter.PublishReport(result); err != nil {
			logger.WithError(err).Error("发布报告到Kafka失败")
			return err
		}
		if err := kafkaWriter.PublishSuspiciousActions(result); err != nil {
			logger.WithError(err).Error("发布可疑操作到Kafka失败")
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"suspicious_actions": len(result.Analysis.SuspiciousActions),
		"related_contracts":  len(result.Analysis.RelatedContracts),
	}).Info("分析完成")
	return nil
}

// newCheckpointCmd 检查点查看子命令
func newCheckpointCmd() *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "查看分析检查点",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有检查点标签",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			manager, err := checkpoint.NewManager(cfg.Analyzer.CheckpointPath, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			labels, err := manager.Labels()
			if err != nil {
				return err
			}

			for _, label := range labels {
				fmt.Println(label)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <label>",
		Short: "显示指定检查点的内容",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			manager, err := checkpoint.NewManager(cfg.Analyzer.CheckpointPath, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			snapshot, err := manager.Load(args[0])
			if err != nil {
				return err
			}
			if snapshot == nil {
				return fmt.Errorf("检查点不存在: %s", args[0])
			}

			data, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	checkpointCmd.AddCommand(listCmd, showCmd)
	return checkpointCmd
}
