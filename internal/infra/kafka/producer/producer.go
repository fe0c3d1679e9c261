package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/vtonlab/vton-service/internal/config"
	"github.com/vtonlab/vton-service/internal/model"
)

// Producer pushes job descriptors onto the queue topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Produce serializes the descriptor to JSON and sends it to the queue.
// The job ID is used as the message key for partitioning and ordering.
// The descriptor must already have passed validation; the queue itself
// performs none.
func (p *Producer) Produce(ctx context.Context, d model.Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %v", err)
	}

	key := []byte(d.ID)

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send descriptor: %v", err)
	}

	return nil
}
