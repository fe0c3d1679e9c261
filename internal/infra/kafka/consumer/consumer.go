package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/vtonlab/vton-service/internal/config"
)

// jobHandler defines the interface for processing dequeued job entries.
type jobHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer is the single blocking consumer of the job queue. It feeds each
// dequeued entry to the handler and keeps running no matter what the
// handler reports: per-entry failures never stop the loop.
type Consumer struct {
	Client     *wbfkafka.Consumer
	jobHandler jobHandler
	cfg        *config.Kafka
	strategy   retry.Strategy
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy
// - jh: handler for processing job entries
func New(
	cfg *config.Kafka,
	s retry.Strategy,
	jh jobHandler,
) *Consumer {
	consumer := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &Consumer{
		Client:     consumer,
		jobHandler: jh,
		cfg:        cfg,
		strategy:   s,
	}
}

// Consume continuously fetches entries from the queue and hands them to the
// handler. Each entry is committed right after the fetch, before any
// processing: a dequeued entry is consumed exactly once whatever its
// outcome, and the job store is the only durable record of it from then
// on. Stops gracefully on context cancellation.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Msg("starting consumer")

	for {
		// Exit if context is canceled (graceful shutdown).
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		// Fetch an entry from the queue with retries.
		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)

		if err != nil {
			// Log error and retry after a short backoff.
			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		// Commit before processing: once dequeued, the entry is gone from
		// the queue regardless of what happens to the job.
		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
		}

		// Process the entry. Handler errors are terminal for this entry
		// only; the loop moves on.
		if err := c.jobHandler.Handle(ctx, msg); err != nil {
			zlog.Logger.Err(err).
				Str("message", string(msg.Value)).
				Msg("failed to process job entry")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Str("message", string(msg.Value)).
			Msg("job entry handled")
	}
}
