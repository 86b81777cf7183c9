package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// OutboxChannel is the pg_notify channel the relay listens on.
const OutboxChannel = "outbox_channel"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordEvent stores evt in the outbox and wakes the relay. Run inside a
// transaction, both take effect only on commit.
func RecordEvent(ctx context.Context, db execer, evt ports.TransitionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode transition event: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		evt.EventID, ports.TransitionEventType, payload, evt.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", evt.EventID, err)
	}

	if _, err := db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, OutboxChannel, evt.EventID); err != nil {
		return fmt.Errorf("notify outbox channel: %w", err)
	}
	return nil
}
