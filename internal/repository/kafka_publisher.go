package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaForecastPublisher implements Publisher for Kafka. Messages are
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaForecastPublisher creates the Kafka publisher.
func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, result *models.EnsembleResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(result.Symbol), result)
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
