package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/repository"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/config"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

const (
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute

	eventProcessTimeout = 30 * time.Second
	batchProcessTimeout = 60 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

// Relay listens for pg_notify signals on the outbox channel and publishes
// the referenced events to the broker. A periodic sweep picks up anything
// the notifications missed, so delivery is at least once.
type Relay struct {
	db            *sql.DB
	dbURL         string
	publisher     ports.TransitionPublisher
	dbCB          *gobreaker.CircuitBreaker
	logger        *zap.Logger
	sweepInterval time.Duration

	lastProcessed atomic.Int64
	healthy       atomic.Bool
}

func NewRelay(db *sql.DB, dbURL string, publisher ports.TransitionPublisher, sweepInterval time.Duration, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		db:            db,
		dbURL:         dbURL,
		publisher:     publisher,
		dbCB:          config.NewCircuitBreaker("Relay-PostgreSQL", logger),
		logger:        logger,
		sweepInterval: sweepInterval,
	}
	r.markProcessed()
	r.healthy.Store(true)
	return r
}

// IsHealthy is the liveness signal: the worker loop is running and its
// listener is connected. An open breaker does not make it unhealthy.
func (r *Relay) IsHealthy() bool {
	return r.healthy.Load()
}

// IsReady also requires a closed breaker and recent progress.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}
	if time.Since(time.Unix(0, r.lastProcessed.Load())) > healthCheckStaleThreshold {
		return false
	}
	return r.IsHealthy()
}

func (r *Relay) markProcessed() {
	r.lastProcessed.Store(time.Now().UnixNano())
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warn("outbox listener problem", zap.Int("event", int(ev)), zap.Error(err))
		}
	}

	listener := pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(repository.OutboxChannel); err != nil {
		return err
	}
	r.logger.Info("outbox relay listening", zap.String("channel", repository.OutboxChannel))

	if err := r.ProcessPending(ctx); err != nil {
		r.logger.Error("failed to process startup backlog", zap.Error(err))
	}

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return ctx.Err()

		case n := <-listener.Notify:
			if n == nil {
				// connection lost; pq reconnects and sends nil once it is back
				r.logger.Warn("outbox listener reconnected, sweeping backlog")
				r.healthy.Store(false)
				if err := r.ProcessPending(ctx); err == nil {
					r.healthy.Store(true)
				}
				continue
			}
			if err := r.ProcessEvent(ctx, n.Extra); err != nil {
				r.logger.Error("failed to process outbox event", zap.String("event_id", n.Extra), zap.Error(err))
				continue
			}
			r.markProcessed()
			r.healthy.Store(true)

		case <-ticker.C:
			go func() { _ = listener.Ping() }()
			if err := r.ProcessPending(ctx); err != nil {
				r.logger.Error("periodic outbox sweep failed", zap.Error(err))
				continue
			}
			r.markProcessed()
		}
	}
}

// ProcessEvent publishes one event and marks it processed. Events already
// processed or locked by another relay are skipped.
func (r *Relay) ProcessEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var rec record
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&rec.ID, &rec.EventType, &rec.Payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.publish(ctx, rec); err != nil {
			return nil, err
		}
		if err := markDone(ctx, tx, rec.ID); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// ProcessPending drains up to one batch of unprocessed events, oldest first.
// Each event is published in its own short transaction, so a slow broker
// never keeps the rest of the batch locked. A publish failure leaves that
// event for the next sweep.
func (r *Relay) ProcessPending(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	ids, err := r.pendingIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		err := r.ProcessEvent(ctx, id)
		switch {
		case err == nil:
			r.logger.Debug("outbox event published", zap.String("event_id", id))
		case errors.Is(err, gobreaker.ErrOpenState), ctx.Err() != nil:
			return err
		default:
			r.logger.Warn("failed to publish outbox event, will retry",
				zap.String("event_id", id), zap.Error(err))
		}
	}
	return nil
}

func (r *Relay) pendingIDs(ctx context.Context) ([]string, error) {
	result, err := r.dbCB.Execute(func() (interface{}, error) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT id
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	ids, _ := result.([]string)
	return ids, nil
}

type record struct {
	ID        string
	EventType string
	Payload   []byte
}

// publish sends transition events to the broker. Unreadable payloads and
// unknown event types return nil so they are marked done instead of
// retried forever.
func (r *Relay) publish(ctx context.Context, rec record) error {
	if rec.EventType != ports.TransitionEventType {
		r.logger.Warn("skipping outbox event of unknown type",
			zap.String("event_id", rec.ID), zap.String("event_type", rec.EventType))
		return nil
	}

	var evt ports.TransitionEvent
	if err := json.Unmarshal(rec.Payload, &evt); err != nil {
		r.logger.Error("invalid outbox payload", zap.String("event_id", rec.ID), zap.Error(err))
		return nil
	}
	return r.publisher.PublishTransition(ctx, evt)
}

func markDone(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
