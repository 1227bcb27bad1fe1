package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. Statements are idempotent so repeated
// boots against the same database are safe.
const schema = `
CREATE TABLE IF NOT EXISTS availability_slots (
    id          UUID PRIMARY KEY,
    owner_id    UUID NOT NULL,
    start_time  TIMESTAMPTZ NOT NULL,
    end_time    TIMESTAMPTZ NOT NULL,
    is_booked   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_slots_owner_start
    ON availability_slots (owner_id, start_time);

CREATE INDEX IF NOT EXISTS idx_slots_bookable
    ON availability_slots (start_time) WHERE NOT is_booked;

CREATE TABLE IF NOT EXISTS triage_records (
    id          UUID PRIMARY KEY,
    kind        TEXT NOT NULL,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL,
    phone       TEXT NOT NULL,
    answers     JSONB,
    status      TEXT NOT NULL DEFAULT 'pending',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_triage_status ON triage_records (status, kind);

CREATE TABLE IF NOT EXISTS triage_history (
    id                UUID PRIMARY KEY,
    triage_record_id  UUID NOT NULL,
    kind              TEXT NOT NULL,
    name              TEXT NOT NULL,
    email             TEXT NOT NULL,
    phone             TEXT NOT NULL,
    answers           JSONB,
    user_id           UUID,
    confirmed_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS screening_appointments (
    id                UUID PRIMARY KEY,
    triage_record_id  UUID NOT NULL REFERENCES triage_records (id),
    slot_id           UUID NOT NULL REFERENCES availability_slots (id),
    start_time        TIMESTAMPTZ NOT NULL,
    meeting_link      TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending_confirmation',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_screening_triage
    ON screening_appointments (triage_record_id) WHERE status <> 'cancelled';

CREATE TABLE IF NOT EXISTS appointments (
    id               UUID PRIMARY KEY,
    series_id        UUID,
    patient_id       UUID NOT NULL,
    professional_id  UUID NOT NULL,
    company_id       UUID,
    appointment_time TIMESTAMPTZ NOT NULL,
    session_value    NUMERIC(10,2),
    status           TEXT NOT NULL DEFAULT 'scheduled',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_appointments_professional
    ON appointments (professional_id, appointment_time);

CREATE INDEX IF NOT EXISTS idx_appointments_patient
    ON appointments (patient_id, appointment_time);

CREATE TABLE IF NOT EXISTS users (
    id                UUID PRIMARY KEY,
    triage_record_id  UUID,
    name              TEXT NOT NULL,
    email             TEXT NOT NULL UNIQUE,
    temp_password     TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_logs (
    id          BIGSERIAL PRIMARY KEY,
    event_type  TEXT NOT NULL,
    entity_id   UUID,
    payload     JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
