package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32 // Max events to fetch per batch
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:      "",
		NotifyChannel:    "draft_outbox_new",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Listener relays committed outbox rows to the publisher. A NOTIFY from the insert
// trigger wakes it immediately; the fallback ticker picks up anything a dropped
// connection made it miss. Rows are marked sent only after the publisher acked them,
// so delivery is at-least-once.
type Listener struct {
	store     Store
	listener  *pq.Listener
	publisher Publisher
	metrics   MetricsCollector
	cfg       ListenerConfig
	active    atomic.Bool
}

func NewListener(store Store, publisher Publisher, metrics MetricsCollector, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	rl := newListener(store, publisher, metrics, cfg)
	rl.listener = l
	return rl, nil
}

func newListener(store Store, publisher Publisher, metrics MetricsCollector, cfg ListenerConfig) *Listener {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Listener{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	l.active.Store(true)
	defer l.active.Store(false)

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// Drain whatever piled up while the relay was down.
	if err := l.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established; we may have missed rows
				if err := l.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Active reports whether the relay loop is running.
func (l *Listener) Active() bool {
	return l.active.Load()
}

// handleNotification handles a pg listen notification. Extra is the outbox row ID.
// Rows committed earlier may still be unsent, so older rows go out first to keep each
// draft's sequence in order.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	if err := l.processUnsent(ctx); err != nil {
		return err
	}

	// The drain above normally covers the notified row; this catches a row that did not fit in the batch.
	event, err := l.store.FetchByID(ctx, id)
	if errors.Is(err, ErrAlreadySent) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return l.relay(ctx, *event)
}

// processUnsent publishes unsent events oldest first, one batch at a time.
func (l *Listener) processUnsent(ctx context.Context) error {
	for {
		start := time.Now()
		unsent, err := l.store.FetchUnsent(ctx, l.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
		}
		if len(unsent) == 0 {
			return nil
		}

		for _, event := range unsent {
			if err := l.relay(ctx, event); err != nil {
				// Stop the batch so later events of the same draft do not overtake this one.
				l.metrics.RecordBatchProcessed(0, time.Since(start))
				return err
			}
		}
		l.metrics.RecordBatchProcessed(len(unsent), time.Since(start))

		if int32(len(unsent)) < l.cfg.BatchSize {
			return nil
		}
	}
}

func (l *Listener) relay(ctx context.Context, event OutboxEvent) error {
	start := time.Now()
	if err := l.publishWithRetry(ctx, event); err != nil {
		l.metrics.RecordEventProcessed(event.EventType, false, time.Since(start))
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	if err := l.store.MarkSent(ctx, event.ID); err != nil {
		l.metrics.RecordEventProcessed(event.EventType, false, time.Since(start))
		return err
	}
	l.metrics.RecordEventProcessed(event.EventType, true, time.Since(start))

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("draft_id", event.DraftID.String()).
		Int64("seq", event.Seq).
		Str("event_type", event.EventType).
		Msg("published and marked event as sent")
	return nil
}

// publishWithRetry attempts to publish an outbox event with a given retry delay and max retries.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := l.publisher.Publish(ctx, event)
		l.metrics.RecordPublishAttempt(event.EventType, attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
