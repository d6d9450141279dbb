package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/ironmq-go/internal/config"
	"github.com/samvad-hq/ironmq-go/internal/ledger"
	"github.com/samvad-hq/ironmq-go/internal/logger"
	"github.com/samvad-hq/ironmq-go/internal/metrics"
	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/samvad-hq/ironmq-go/pkg/publishers"
)

// QueueClient is the part of *mq.Client the forwarder drives.
type QueueClient interface {
	ReserveMessages(ctx context.Context, queue string, n, timeout, wait int) ([]mq.QueueMessage, error)
	DeleteMessage(ctx context.Context, queue, id, reservationID string) (*mq.Result, error)
	ReleaseMessage(ctx context.Context, queue, id, reservationID string, delay int) (*mq.Result, error)
}

// Forwarder drains a queue into the configured sinks. A message is deleted
// once every sink accepted it and released back to the queue otherwise, so
// redelivery is left to the server.
type Forwarder struct {
	queue    string
	client   QueueClient
	fanout   *publishers.Fanout
	settings config.Forward
	log      logger.Logger
	metrics  *metrics.Metrics
	ledger   ledger.Ledger
}

// Option customises a Forwarder.
type Option func(*Forwarder)

// WithLedger remembers delivered messages so a redelivery after a failed
// delete is not published again.
func WithLedger(l ledger.Ledger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.ledger = l
		}
	}
}

// BatchStats summarises one reserve/dispatch cycle.
type BatchStats struct {
	Reserved  int `json:"reserved"`
	Forwarded int `json:"forwarded"`
	Released  int `json:"released"`
	Skipped   int `json:"skipped,omitempty"`
}

// NewForwarder wires a forwarder for queue. m may be nil.
func NewForwarder(queue string, client QueueClient, fanout *publishers.Fanout, settings config.Forward, log logger.Logger, m *metrics.Metrics, opts ...Option) (*Forwarder, error) {
	if queue == "" {
		return nil, errors.New("queue name must not be empty")
	}
	if client == nil {
		return nil, errors.New("queue client must not be nil")
	}
	if fanout.Size() == 0 {
		return nil, errors.New("no sinks configured")
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 1
	}
	if settings.ReservationTimeoutSeconds <= 0 {
		settings.ReservationTimeoutSeconds = mq.DefaultMessageTimeout
	}
	if settings.Interval <= 0 {
		settings.Interval = time.Second
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	f := &Forwarder{
		queue:    queue,
		client:   client,
		fanout:   fanout,
		settings: settings,
		log:      log,
		metrics:  m,
		ledger:   ledger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// NewForwarderFromConfig loads the sinks file and builds every enabled sink.
func NewForwarderFromConfig(ctx context.Context, cfg *config.Config, queue string, client QueueClient, log logger.Logger, m *metrics.Metrics) (*Forwarder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sinkReg, err := publishers.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}

	enabled := sinkReg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no sinks configured")
	}

	led, err := ledger.Open(cfg.Forward.LedgerType, cfg.Forward.LedgerPath, ledger.Options{TTL: cfg.Forward.LedgerTTL})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	log.InfoObj("delivery ledger initialized", "ledger_config", map[string]any{
		"type":        cfg.Forward.LedgerType,
		"path":        cfg.Forward.LedgerPath,
		"ttl_seconds": int(cfg.Forward.LedgerTTL.Seconds()),
	})

	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		_ = led.Close()
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   s.ID,
			"type": s.Type,
		})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})

	fanout := publishers.NewFanout(pubs)
	fwd, err := NewForwarder(queue, client, fanout, cfg.Forward, log, m, WithLedger(led))
	if err != nil {
		_ = fanout.Close()
		_ = led.Close()
		return nil, err
	}
	return fwd, nil
}

// Run processes batches until the context is cancelled. An empty queue is
// polled again after the configured interval.
func (f *Forwarder) Run(ctx context.Context) error {
	if f == nil || f.client == nil {
		return fmt.Errorf("forwarder is not initialized")
	}
	defer func() {
		if err := f.Close(); err != nil {
			f.log.ErrorObj("forwarder close failed", "error", err)
		}
	}()

	f.log.InfoObj("forwarder loop starting", "forwarder_state", map[string]any{
		"queue":       f.queue,
		"sinks_count": f.fanout.Size(),
		"batch_size":  f.settings.BatchSize,
		"interval":    f.settings.Interval.String(),
	})

	ticker := time.NewTicker(f.settings.Interval)
	defer ticker.Stop()

	for {
		stats, err := f.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			f.log.ErrorObj("forward batch failed", "error", err)
		}
		// A full batch suggests more is waiting; skip the pause.
		if err == nil && stats.Reserved >= f.settings.BatchSize {
			if ctx.Err() != nil {
				f.log.InfoObj("forwarder loop exiting", "reason", ctx.Err())
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			f.log.InfoObj("forwarder loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce reserves one batch and dispatches every message in it.
func (f *Forwarder) RunOnce(ctx context.Context) (BatchStats, error) {
	var stats BatchStats
	start := time.Now()

	msgs, err := f.client.ReserveMessages(ctx, f.queue, f.settings.BatchSize, f.settings.ReservationTimeoutSeconds, f.settings.WaitSeconds)
	if err != nil {
		return stats, fmt.Errorf("reserve messages: %w", err)
	}
	stats.Reserved = len(msgs)
	if len(msgs) == 0 {
		return stats, nil
	}
	f.count(func(m *metrics.Metrics) { m.MessagesReserved.WithLabelValues(f.queue).Add(float64(len(msgs))) })

	var errs []error
	for _, msg := range msgs {
		res, err := f.dispatch(ctx, msg)
		if err != nil {
			errs = append(errs, err)
		}
		switch res {
		case outcomeForwarded:
			stats.Forwarded++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeReleased:
			stats.Released++
		}
	}

	f.count(func(m *metrics.Metrics) { m.BatchDuration.WithLabelValues(f.queue).Observe(time.Since(start).Seconds()) })
	f.log.InfoObj("forward batch completed", "forward_meta", map[string]any{
		"queue":      f.queue,
		"reserved":   stats.Reserved,
		"forwarded":  stats.Forwarded,
		"released":   stats.Released,
		"skipped":    stats.Skipped,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return stats, errors.Join(errs...)
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeForwarded
	outcomeSkipped
	outcomeReleased
)

// dispatch publishes one message and settles its reservation.
func (f *Forwarder) dispatch(ctx context.Context, msg mq.QueueMessage) (outcome, error) {
	key := ledger.Key(f.queue, msg.ID)
	seen, err := f.ledger.Delivered(key)
	if err != nil {
		f.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{
			"queue":      f.queue,
			"message_id": msg.ID,
			"error":      err.Error(),
		})
		seen = false
	}

	result := outcomeSkipped
	if !seen {
		evt := publishers.NewEvent(f.queue, msg.ID, msg.Body, msg.ReservedCount)
		if _, pubErr := f.fanout.Publish(ctx, evt); pubErr != nil {
			return f.release(ctx, msg, pubErr)
		}
		if err := f.ledger.MarkDelivered(key); err != nil {
			f.log.WarnObj("ledger write failed", "ledger_error", map[string]any{
				"queue":      f.queue,
				"message_id": msg.ID,
				"error":      err.Error(),
			})
		}
		result = outcomeForwarded
	} else {
		f.log.DebugObj("message already delivered, deleting only", "forward_skip", map[string]any{
			"queue":          f.queue,
			"message_id":     msg.ID,
			"reserved_count": msg.ReservedCount,
		})
	}

	if _, err := f.client.DeleteMessage(ctx, f.queue, msg.ID, msg.ReservationID); err != nil {
		// The reservation expires and the message comes back.
		return outcomeFailed, fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	if result == outcomeForwarded {
		f.count(func(m *metrics.Metrics) { m.MessagesForwarded.WithLabelValues(f.queue).Inc() })
	} else {
		f.count(func(m *metrics.Metrics) { m.MessagesSkipped.WithLabelValues(f.queue).Inc() })
	}
	return result, nil
}

// release hands a message back to the queue after a sink failure.
func (f *Forwarder) release(ctx context.Context, msg mq.QueueMessage, pubErr error) (outcome, error) {
	f.count(func(m *metrics.Metrics) { m.SinkFailures.WithLabelValues(f.queue).Inc() })
	f.log.WarnObj("sink delivery failed, releasing message", "forward_failure", map[string]any{
		"queue":          f.queue,
		"message_id":     msg.ID,
		"reserved_count": msg.ReservedCount,
		"error":          pubErr.Error(),
	})

	if _, err := f.client.ReleaseMessage(ctx, f.queue, msg.ID, msg.ReservationID, f.settings.ReleaseDelaySeconds); err != nil {
		return outcomeFailed, errors.Join(pubErr, fmt.Errorf("release message %s: %w", msg.ID, err))
	}
	f.count(func(m *metrics.Metrics) { m.MessagesReleased.WithLabelValues(f.queue).Inc() })
	return outcomeReleased, pubErr
}

func (f *Forwarder) count(fn func(*metrics.Metrics)) {
	if f.metrics != nil {
		fn(f.metrics)
	}
}

// Close releases the sinks and the ledger. Run calls it on exit; callers
// using RunOnce close explicitly.
func (f *Forwarder) Close() error {
	if f == nil {
		return nil
	}
	return errors.Join(f.fanout.Close(), f.ledger.Close())
}
