package output

import (
	"encoding/json"
	"fmt"

	"hackscan/internal/config"
	"hackscan/pkg/models"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaWriter 报告Kafka发布器
// 完整报告和单条可疑操作分别发布到独立主题
type KafkaWriter struct {
	producer sarama.SyncProducer
	topics   map[string]string
	logger   *logrus.Logger
}

// NewKafkaWriter 创建Kafka发布器
func NewKafkaWriter(cfg *config.KafkaConfig, logger *logrus.Logger) (*KafkaWriter, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	return &KafkaWriter{
		producer: producer,
		topics:   cfg.Topics,
		logger:   logger,
	}, nil
}

// Close 关闭Kafka生产者
func (w *KafkaWriter) Close() error {
	return w.producer.Close()
}

// PublishReport 发布完整报告
func (w *KafkaWriter) PublishReport(report *models.Report) error {
	topic, ok := w.topics["reports"]
	if !ok {
		return fmt.Errorf("未配置报告主题")
	}
	return w.send(topic, report.Metadata.HackTransaction, report)
}

// PublishSuspiciousActions 逐条发布可疑操作
func (w *KafkaWriter) PublishSuspiciousActions(report *models.Report) error {
	topic, ok := w.topics["suspicious_actions"]
	if !ok {
		return fmt.Errorf("未配置可疑操作主题")
	}

	for _, tx := range report.Analysis.SuspiciousActions {
		if err := w.send(topic, tx.Hash, tx); err != nil {
			return err
		}
	}
	return nil
}

func (w *KafkaWriter) send(topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化Kafka消息失败: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := w.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("发送Kafka消息失败: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
	}).Debug("Kafka消息已发送")
	return nil
}
