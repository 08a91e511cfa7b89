package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/config"
	"github.com/tickerwatch/notifier/internal/metrics"
)

// Handler processes one decoded feed payload (the inner message body).
type Handler func(ctx context.Context, payload []byte) error

// maxConsecutiveFailures is how many fetch errors in a row the feed
// tolerates before reporting unhealthy, so transient broker hiccups do not
// bounce the pod.
const maxConsecutiveFailures = 3

const fetchRetryDelay = 5 * time.Second

// KafkaFeed consumes batched price updates from the message bus. Offsets
// are committed only after the handler succeeds, so a batch-fatal error
// leaves the message for redelivery; the bus is at-least-once and the
// evaluation pipeline is built to absorb duplicates.
type KafkaFeed struct {
	reader  *kafka.Reader
	handler Handler
	logger  *zap.Logger

	healthy          atomic.Bool
	consecutiveFails int32
}

func NewKafkaFeed(cfg config.Config, handler Handler, logger *zap.Logger) *KafkaFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   cfg.KafkaTopic,
		MaxWait: cfg.KafkaMaxWait,
	})
	f := &KafkaFeed{reader: reader, handler: handler, logger: logger}
	f.healthy.Store(true)
	return f
}

// Healthy reports whether the feed is actively consuming.
func (f *KafkaFeed) Healthy() bool {
	return f.healthy.Load()
}

// Run consumes until ctx is cancelled.
func (f *KafkaFeed) Run(ctx context.Context) error {
	f.logger.Info("kafka feed started",
		zap.String("topic", f.reader.Config().Topic),
		zap.String("group_id", f.reader.Config().GroupID))
	defer f.reader.Close()

	for {
		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				f.healthy.Store(false)
				f.logger.Info("kafka feed stopped")
				return nil
			}
			fails := atomic.AddInt32(&f.consecutiveFails, 1)
			f.logger.Warn("kafka fetch error",
				zap.Int32("consecutive", fails), zap.Error(err))
			if fails >= maxConsecutiveFailures {
				f.healthy.Store(false)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		if atomic.SwapInt32(&f.consecutiveFails, 0) > 0 {
			f.healthy.Store(true)
		}

		payload := UnwrapEnvelope(msg.Value)
		start := time.Now()
		if err := f.handler(ctx, payload); err != nil {
			metrics.EventsTotal.WithLabelValues("failed").Inc()
			// Leave the offset uncommitted; the message comes back after
			// a rebalance or restart.
			f.logger.Warn("price update handler error, message will be redelivered",
				zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		metrics.EventsTotal.WithLabelValues("processed").Inc()
		metrics.EventHandleDuration.Observe(time.Since(start).Seconds())

		if err := f.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			f.logger.Warn("kafka commit error", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}
