package classifier

import (
	"context"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// ContractChecker 合约判定接口
type ContractChecker interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

// TraceAnalyzer 内部调用链分析器
type TraceAnalyzer struct {
	checker    ContractChecker
	classifier *Classifier
	logger     *logrus.Logger
}

// NewTraceAnalyzer 创建调用链分析器
func NewTraceAnalyzer(checker ContractChecker, classifier *Classifier, logger *logrus.Logger) *TraceAnalyzer {
	return &TraceAnalyzer{
		checker:    checker,
		classifier: classifier,
		logger:     logger,
	}
}

// classifyKind 根据调用双方的账户类型确定调用种类
func classifyKind(fromContract, toContract bool) string {
	switch {
	case fromContract && toContract:
		return models.StepContractToContract
	case fromContract:
		return models.StepContractToEOA
	case toContract:
		return models.StepEOAToContract
	default:
		return models.StepEOAToEOA
	}
}

// Analyze 标注调用链中每一步的账户类型，并收集涉及的合约地址
func (a *TraceAnalyzer) Analyze(ctx context.Context, steps []*models.TraceStep, report *models.Report) error {
	for _, step := range steps {
		fromContract, err := a.checker.IsContract(ctx, step.From)
		if err != nil {
			return err
		}

		toContract := false
		if step.To != "" {
			toContract, err = a.checker.IsContract(ctx, step.To)
			if err != nil {
				return err
			}
		}

		step.Kind = classifyKind(fromContract, toContract)

		if fromContract {
			report.AddRelatedContract(step.From)
		}
		if toContract {
			report.AddRelatedContract(step.To)
		}

		// 调用数据复用交易分类器的选择器表
		probe := &models.Transaction{Hash: step.TransactionHash, Input: step.Input}
		a.classifier.Classify(probe)
		if probe.Suspicious {
			step.Suspicious = true
			for _, reason := range probe.Reasons {
				step.AddReason(reason)
			}
			a.logger.WithFields(logrus.Fields{
				"tx_hash": step.TransactionHash,
				"method":  probe.Method,
				"to":      step.To,
			}).Warn("调用链中发现可疑调用")
		}
	}

	return nil
}
