package crawler

import (
	"context"

	"hackscan/internal/classifier"
	"hackscan/internal/validation"
	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// TransactionLister 地址交易列表查询接口
type TransactionLister interface {
	ListTransactions(ctx context.Context, address string) ([]*models.Transaction, error)
}

// ContractChecker 合约判定接口
type ContractChecker interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

// Crawler 交互图广度优先爬取器
type Crawler struct {
	lister       TransactionLister
	checker      ContractChecker
	classifier   *classifier.Classifier
	maxContracts int
	logger       *logrus.Logger
}

// NewCrawler 创建爬取器
// maxContracts为0时不限制爬取规模
func NewCrawler(lister TransactionLister, checker ContractChecker, cls *classifier.Classifier, maxContracts int, logger *logrus.Logger) *Crawler {
	return &Crawler{
		lister:       lister,
		checker:      checker,
		classifier:   cls,
		maxContracts: maxContracts,
		logger:       logger,
	}
}

// Crawl 从种子地址出发爬取合约交互图
// 每个地址恰好处理一次，发现的可疑交易和关联合约写入报告
func (c *Crawler) Crawl(ctx context.Context, seed string, report *models.Report) (*Frontier, error) {
	frontier := NewFrontier()
	frontier.Push(seed)

	for {
		if err := ctx.Err(); err != nil {
			return frontier, err
		}

		if c.maxContracts > 0 && frontier.ProcessedCount() >= c.maxContracts {
			c.logger.WithField("max_contracts", c.maxContracts).Warn("已达到爬取规模上限，提前结束")
			break
		}

		address, ok := frontier.Pop()
		if !ok {
			break
		}

		if !validation.IsValidAddress(address) {
			// 格式非法的地址只记录不中断，也不计入已处理集合
			c.logger.WithField("address", address).Warn("地址格式非法，已跳过")
			continue
		}

		frontier.MarkProcessed(address)

		if err := c.processAddress(ctx, address, frontier, report); err != nil {
			return frontier, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"processed":  frontier.ProcessedCount(),
		"suspicious": len(report.Analysis.SuspiciousActions),
	}).Info("交互图爬取完成")

	return frontier, nil
}

// processAddress 处理单个地址的全部交易
func (c *Crawler) processAddress(ctx context.Context, address string, frontier *Frontier, report *models.Report) error {
	txs, err := c.lister.ListTransactions(ctx, address)
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"txs":     len(txs),
	}).Debug("正在分析地址交易")

	for _, tx := range txs {
		// from或to任一方校验失败时整条记录丢弃，合约创建交易（to为空）也在此过滤
		if !validation.IsValidAddress(tx.From) || !validation.IsValidAddress(tx.To) {
			continue
		}

		// 交易对手方为合约时加入爬取队列
		isContract, err := c.checker.IsContract(ctx, tx.To)
		if err != nil {
			return err
		}
		if isContract {
			report.AddRelatedContract(tx.To)
			frontier.Push(tx.To)
		}

		c.classifier.Classify(tx)
		if tx.Suspicious {
			report.AddSuspiciousAction(tx)
			c.logger.WithFields(logrus.Fields{
				"tx_hash": tx.Hash,
				"method":  tx.Method,
				"address": address,
			}).Warn("发现可疑交易")
		}
	}

	return nil
}
