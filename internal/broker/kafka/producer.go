package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"fraud-viewer/internal/config"
	"fraud-viewer/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(cfg *config.Config) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		retries:  cfg.DefaultRetryStrategy(),
	}
}

func (p *ProducerClient) Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, strategy, key, value)
}

// Publish sends a submission event keyed by submission id, so all events of one
// submission land on the same partition.
func (p *ProducerClient) Publish(ctx context.Context, event domain.SubmissionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.Send(ctx, p.retries, []byte(event.ID), value); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
