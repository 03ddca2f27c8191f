package sampler

import (
	"context"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
)

// HeadReader 链头高度读取接口
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// ImplementationReader 实现地址读取接口
type ImplementationReader interface {
	ImplementationAt(ctx context.Context, proxy string, blockNumber uint64) (string, error)
}

// Sampler 实现地址历史采样器
// 以固定步长遍历区块高度，记录每个采样点的实现地址
type Sampler struct {
	head   HeadReader
	reader ImplementationReader
	stride uint64
	logger *logrus.Logger
}

// NewSampler 创建采样器
func NewSampler(head HeadReader, reader ImplementationReader, stride uint64, logger *logrus.Logger) *Sampler {
	if stride == 0 {
		stride = 1000
	}
	return &Sampler{
		head:   head,
		reader: reader,
		stride: stride,
		logger: logger,
	}
}

// Sample 采样代理合约的实现地址历史
// 链头高度只读取一次，之后所有采样点基于同一高度
func (s *Sampler) Sample(ctx context.Context, proxy string) ([]*models.ImplementationSighting, error) {
	headBlock, err := s.head.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	var sightings []*models.ImplementationSighting
	for block := uint64(0); block < headBlock; block += s.stride {
		if err := ctx.Err(); err != nil {
			return sightings, err
		}

		implementation, err := s.reader.ImplementationAt(ctx, proxy, block)
		if err != nil {
			// 单点读取失败不中断采样
			s.logger.WithFields(logrus.Fields{
				"proxy": proxy,
				"block": block,
			}).WithError(err).Warn("采样点读取失败，已跳过")
			continue
		}

		// 零地址表示该高度尚未设置实现
		if implementation == models.ZeroAddress {
			continue
		}

		sightings = append(sightings, &models.ImplementationSighting{
			BlockNumber:    block,
			Implementation: implementation,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"proxy":     proxy,
		"head":      headBlock,
		"stride":    s.stride,
		"sightings": len(sightings),
	}).Info("实现历史采样完成")

	return sightings, nil
}
