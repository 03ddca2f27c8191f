package report

import (
	"context"
	"fmt"

	"hackscan/internal/classifier"
	"hackscan/internal/crawler"
	forensicerrors "hackscan/internal/errors"
	"hackscan/internal/validation"
	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// 各分析阶段的检查点标签
const (
	PhaseHackTransaction       = "phase1_hack_transaction"
	PhaseVictimHistory         = "phase2_victim_history"
	PhaseInteractionGraph      = "phase3_interaction_graph"
	PhaseImplementationHistory = "phase4_implementation_history"
)

// TransactionReader 交易详情读取接口
type TransactionReader interface {
	TransactionDetail(ctx context.Context, hash string) (*models.Transaction, error)
}

// TraceLister 内部调用查询接口
type TraceLister interface {
	ListInternalCalls(ctx context.Context, txHash string) ([]*models.TraceStep, error)
}

// StateInspector 代理状态检查接口
type StateInspector interface {
	StateChangesAround(ctx context.Context, proxy string, blockNumber uint64) (*models.StateChanges, error)
}

// TransactionLister 地址交易列表查询接口
type TransactionLister interface {
	ListTransactions(ctx context.Context, address string) ([]*models.Transaction, error)
}

// GraphCrawler 交互图爬取接口
type GraphCrawler interface {
	Crawl(ctx context.Context, seed string, report *models.Report) (*crawler.Frontier, error)
}

// HistorySampler 实现历史采样接口
type HistorySampler interface {
	Sample(ctx context.Context, proxy string) ([]*models.ImplementationSighting, error)
}

// CheckpointStore 检查点存储接口
type CheckpointStore interface {
	Save(label string, report any) error
	SaveWithError(label string, report any, cause error) error
}

// Assembler 调查报告装配器
// 按固定顺序执行四个分析阶段，每个阶段完成后保存检查点
type Assembler struct {
	chain       TransactionReader
	traces      TraceLister
	inspector   StateInspector
	explorer    TransactionLister
	crawler     GraphCrawler
	sampler     HistorySampler
	checkpoints CheckpointStore
	classifier  *classifier.Classifier
	analyzer    *classifier.TraceAnalyzer
	logger      *logrus.Logger
}

// NewAssembler 创建报告装配器
func NewAssembler(
	chain TransactionReader,
	traces TraceLister,
	inspector StateInspector,
	explorer TransactionLister,
	graphCrawler GraphCrawler,
	sampler HistorySampler,
	checkpoints CheckpointStore,
	cls *classifier.Classifier,
	analyzer *classifier.TraceAnalyzer,
	logger *logrus.Logger,
) *Assembler {
	return &Assembler{
		chain:       chain,
		traces:      traces,
		inspector:   inspector,
		explorer:    explorer,
		crawler:     graphCrawler,
		sampler:     sampler,
		checkpoints: checkpoints,
		classifier:  cls,
		analyzer:    analyzer,
		logger:      logger,
	}
}

// Assemble 执行完整调查流程并返回报告
// 某一阶段致命失败时保存错误检查点并原样返回错误，已完成阶段的结果保留在报告中
func (a *Assembler) Assemble(ctx context.Context, hackTx, victim, hacker, knownImpl string) (*models.Report, error) {
	if !validation.IsValidHash(hackTx) {
		return nil, forensicerrors.NewValidationError(fmt.Sprintf("交易哈希格式非法: %s", hackTx))
	}
	if !validation.IsValidAddress(victim) {
		return nil, forensicerrors.NewValidationError(fmt.Sprintf("受害合约地址非法: %s", victim))
	}
	if !validation.IsValidAddress(hacker) {
		return nil, forensicerrors.NewValidationError(fmt.Sprintf("攻击者地址非法: %s", hacker))
	}

	report := models.NewReport(hackTx, validation.Normalize(victim), validation.Normalize(hacker), knownImpl)

	phases := []struct {
		label string
		run   func(context.Context, *models.Report) error
	}{
		{PhaseHackTransaction, a.analyzeHackTransaction},
		{PhaseVictimHistory, a.analyzeVictimHistory},
		{PhaseInteractionGraph, a.crawlInteractionGraph},
		{PhaseImplementationHistory, a.sampleImplementationHistory},
	}

	for _, phase := range phases {
		a.logger.WithField("phase", phase.label).Info("开始分析阶段")

		if err := phase.run(ctx, report); err != nil {
			if cpErr := a.checkpoints.SaveWithError("error_"+phase.label, report, err); cpErr != nil {
				a.logger.WithField("phase", phase.label).WithError(cpErr).Error("错误检查点保存失败")
			}
			return report, err
		}

		if err := a.checkpoints.Save(phase.label, report); err != nil {
			a.logger.WithField("phase", phase.label).WithError(err).Error("检查点保存失败")
		}
	}

	report.Finalize()
	return report, nil
}

// analyzeHackTransaction 阶段一：分析种子交易本体、内部调用链和前后状态
func (a *Assembler) analyzeHackTransaction(ctx context.Context, report *models.Report) error {
	tx, err := a.chain.TransactionDetail(ctx, report.Metadata.HackTransaction)
	if err != nil {
		return err
	}

	a.classifier.Classify(tx)
	report.Analysis.HackDetails.Transaction = tx

	steps, err := a.traces.ListInternalCalls(ctx, report.Metadata.HackTransaction)
	if err != nil {
		return err
	}
	if err := a.analyzer.Analyze(ctx, steps, report); err != nil {
		return err
	}
	report.Analysis.HackDetails.TraceSteps = steps

	changes, err := a.inspector.StateChangesAround(ctx, report.Metadata.VictimContract, tx.BlockNumber)
	if err != nil {
		return err
	}
	report.Analysis.HackDetails.StateChanges = changes

	if changes.ImplementationChanged {
		a.logger.WithFields(logrus.Fields{
			"before": changes.Before.Implementation,
			"after":  changes.After.Implementation,
		}).Warn("种子交易前后实现地址发生变更")
	}

	return nil
}

// analyzeVictimHistory 阶段二：遍历受害合约的全部历史交易
func (a *Assembler) analyzeVictimHistory(ctx context.Context, report *models.Report) error {
	report.AddRelatedContract(report.Metadata.VictimContract)

	txs, err := a.explorer.ListTransactions(ctx, report.Metadata.VictimContract)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		a.classifier.Classify(tx)
		if tx.Suspicious {
			report.AddSuspiciousAction(tx)
		}
	}

	return nil
}

// crawlInteractionGraph 阶段三：以攻击者地址为种子爬取交互图
func (a *Assembler) crawlInteractionGraph(ctx context.Context, report *models.Report) error {
	_, err := a.crawler.Crawl(ctx, report.Metadata.HackerAddress, report)
	return err
}

// sampleImplementationHistory 阶段四：采样受害合约的实现地址历史
func (a *Assembler) sampleImplementationHistory(ctx context.Context, report *models.Report) error {
	sightings, err := a.sampler.Sample(ctx, report.Metadata.VictimContract)
	if err != nil {
		return err
	}

	for _, s := range sightings {
		report.AddImplementationSighting(s)
	}

	return nil
}
