package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS donation_processes (
	id               TEXT PRIMARY KEY,
	donor_id         TEXT        NOT NULL,
	donor_full_name  TEXT        NOT NULL DEFAULT '',
	donor_blood_type TEXT        NOT NULL DEFAULT '',
	donor_email      TEXT        NOT NULL DEFAULT '',
	donor_phone      TEXT        NOT NULL DEFAULT '',
	donation_type    VARCHAR(30) NOT NULL,
	status           VARCHAR(30) NOT NULL,
	note             TEXT        NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	version          BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_donation_processes_status ON donation_processes (status);
CREATE INDEX IF NOT EXISTS idx_donation_processes_donor ON donation_processes (donor_id);

CREATE TABLE IF NOT EXISTS donation_appointments (
	id                TEXT PRIMARY KEY,
	process_id        TEXT        NOT NULL UNIQUE REFERENCES donation_processes (id),
	scheduled_date    TIMESTAMPTZ NOT NULL,
	location          TEXT        NOT NULL,
	room_number       INTEGER     NOT NULL,
	bed_number        INTEGER     NOT NULL,
	notes             TEXT        NOT NULL DEFAULT '',
	status            VARCHAR(30) NOT NULL,
	reschedule_reason TEXT        NOT NULL DEFAULT '',
	reservation_id    TEXT        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS donation_health_checks (
	process_id               TEXT PRIMARY KEY REFERENCES donation_processes (id),
	blood_pressure_systolic  INTEGER          NOT NULL,
	blood_pressure_diastolic INTEGER          NOT NULL,
	heart_rate               INTEGER          NOT NULL,
	temperature              DOUBLE PRECISION NOT NULL,
	weight                   DOUBLE PRECISION NOT NULL,
	hemoglobin_level         DOUBLE PRECISION NOT NULL,
	is_eligible              BOOLEAN          NOT NULL,
	notes                    TEXT             NOT NULL DEFAULT '',
	checked_at               TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS donation_collections (
	process_id          TEXT PRIMARY KEY REFERENCES donation_processes (id),
	collected_volume_ml INTEGER     NOT NULL CHECK (collected_volume_ml BETWEEN 100 AND 500),
	notes               TEXT        NOT NULL DEFAULT '',
	collected_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS donation_test_results (
	process_id    TEXT PRIMARY KEY REFERENCES donation_processes (id),
	passed        BOOLEAN     NOT NULL,
	notes         TEXT        NOT NULL,
	blood_unit_id TEXT        NOT NULL DEFAULT '',
	recorded_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox_events (
	id           TEXT PRIMARY KEY,
	event_type   TEXT        NOT NULL,
	payload      JSONB       NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_events_unprocessed ON outbox_events (created_at) WHERE processed_at IS NULL;
`

// Migrate creates the tables used by SQLRepository and the outbox.
// Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
