package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacemind/clinic-scheduling/internal/availability"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const screeningCols = `id, triage_record_id, slot_id, start_time, meeting_link, status, created_at, updated_at`

func scanScreening(row pgx.Row) (*ScreeningAppointment, error) {
	var a ScreeningAppointment

	err := row.Scan(
		&a.ID,
		&a.TriageRecordID,
		&a.SlotID,
		&a.StartTime,
		&a.MeetingLink,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+screeningCols+`
		FROM screening_appointments
		WHERE id = $1
	`, id)
	return scanScreening(row)
}

func (r *PgRepository) GetLiveByTriage(ctx context.Context, triageID uuid.UUID) (*ScreeningAppointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+screeningCols+`
		FROM screening_appointments
		WHERE triage_record_id = $1
		  AND status <> 'cancelled'
	`, triageID)
	return scanScreening(row)
}

func (r *PgRepository) List(ctx context.Context, status *Status, limit, offset int) ([]ScreeningAppointment, error) {
	query := `SELECT ` + screeningCols + ` FROM screening_appointments WHERE 1=1`
	var args []any
	idx := 1

	if status != nil {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *status)
		idx++
	}
	query += fmt.Sprintf(` ORDER BY start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScreenings(rows)
}

func (r *PgRepository) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]ScreeningAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+screeningCols+`
		FROM screening_appointments
		WHERE status = 'confirmed'
		  AND start_time >= $1
		  AND start_time < $2
		ORDER BY start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScreenings(rows)
}

func (r *PgRepository) CreateBooking(ctx context.Context, triageID, slotID uuid.UUID) (*ScreeningAppointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// One live appointment per triage record.
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM screening_appointments
			WHERE triage_record_id = $1 AND status <> 'cancelled'
		)
	`, triageID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check live screening: %w", err)
	}
	if exists {
		return nil, ErrBookingExists
	}

	start, err := claimSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}

	if err := moveTriage(ctx, tx, triageID, triage.StatusScheduled, triage.StatusPending); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO screening_appointments (id, triage_record_id, slot_id, start_time, meeting_link, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', 'pending_confirmation', now(), now())
		RETURNING `+screeningCols+`
	`, uuid.New(), triageID, slotID, start)

	appt, err := scanScreening(row)
	if err != nil {
		return nil, fmt.Errorf("insert screening: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Confirm(ctx context.Context, id uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confirm: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE screening_appointments
		SET status = 'confirmed',
		    meeting_link = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending_confirmation'
		RETURNING `+screeningCols+`
	`, id, meetingLink)

	appt, err := scanScreening(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := moveTriage(ctx, tx, appt.TriageRecordID, triage.StatusConfirmed, triage.StatusScheduled); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id, newSlotID uuid.UUID, meetingLink string) (*ScreeningAppointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanScreening(tx.QueryRow(ctx, `
		SELECT `+screeningCols+`
		FROM screening_appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled {
		return nil, ErrInvalidState
	}
	// Moving onto the slot already held is not a lost race, it is a
	// no-op request the caller should not retry.
	if current.SlotID == newSlotID {
		return nil, ErrInvalidState
	}

	// Claim the new slot before touching the old one: if the claim loses,
	// the rollback leaves the original booking fully intact.
	start, err := claimSlot(ctx, tx, newSlotID)
	if err != nil {
		return nil, err
	}

	if err := releaseSlot(ctx, tx, current.SlotID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE screening_appointments
		SET slot_id = $2,
		    start_time = $3,
		    meeting_link = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+screeningCols+`
	`, id, newSlotID, start, meetingLink)

	appt, err := scanScreening(row)
	if err != nil {
		return nil, fmt.Errorf("update screening: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID) (*ScreeningAppointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE screening_appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'cancelled'
		RETURNING `+screeningCols+`
	`, id)

	appt, err := scanScreening(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidState
		}
		return nil, err
	}

	if err := releaseSlot(ctx, tx, appt.SlotID); err != nil {
		return nil, err
	}

	// Control returns to the candidate: the triage record goes back to the
	// pending pool whatever live state it was in.
	if err := moveTriage(ctx, tx, appt.TriageRecordID, triage.StatusPending,
		triage.StatusScheduled, triage.StatusConfirmed, triage.StatusPending); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	return appt, nil
}

// claimSlot is the atomic conditional claim: it only wins if is_booked is
// still false at write time.
func claimSlot(ctx context.Context, tx pgx.Tx, slotID uuid.UUID) (time.Time, error) {
	var start time.Time
	err := tx.QueryRow(ctx, `
		UPDATE availability_slots
		SET is_booked = TRUE,
		    updated_at = now()
		WHERE id = $1
		  AND NOT is_booked
		RETURNING start_time
	`, slotID).Scan(&start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if scanErr := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1)`,
				slotID).Scan(&exists); scanErr != nil {
				return time.Time{}, fmt.Errorf("check slot: %w", scanErr)
			}
			if !exists {
				return time.Time{}, availability.ErrSlotNotFound
			}
			return time.Time{}, ErrSlotUnavailable
		}
		return time.Time{}, fmt.Errorf("claim slot: %w", err)
	}
	return start, nil
}

func releaseSlot(ctx context.Context, tx pgx.Tx, slotID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = FALSE,
		    updated_at = now()
		WHERE id = $1
	`, slotID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func moveTriage(ctx context.Context, tx pgx.Tx, id uuid.UUID, to triage.Status, from ...triage.Status) error {
	fromStrs := make([]string, 0, len(from))
	for _, f := range from {
		fromStrs = append(fromStrs, string(f))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE triage_records
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
	`, id, to, fromStrs)
	if err != nil {
		return fmt.Errorf("move triage record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM triage_records WHERE id = $1)`,
			id).Scan(&exists); err != nil {
			return fmt.Errorf("check triage record: %w", err)
		}
		if !exists {
			return triage.ErrRecordNotFound
		}
		return ErrTriageNotBookable
	}

	return nil
}

func collectScreenings(rows pgx.Rows) ([]ScreeningAppointment, error) {
	var result []ScreeningAppointment
	for rows.Next() {
		a, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
