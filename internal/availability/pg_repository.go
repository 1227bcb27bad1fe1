package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot

	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

const slotCols = `id, owner_id, start_time, end_time, is_booked, created_at, updated_at`

func (r *PgRepository) Insert(ctx context.Context, slot *AvailabilitySlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_slots (id, owner_id, start_time, end_time, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, now(), now())
	`, slot.ID, slot.OwnerID, slot.StartTime, slot.EndTime)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}

	return nil
}

// InsertBatch writes a generated batch in one transaction, re-checking the
// overlap invariant per slot so a concurrent insert cannot slip between the
// service's validation and the write.
func (r *PgRepository) InsertBatch(ctx context.Context, slots []AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range slots {
		s := &slots[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}

		var overlaps bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM availability_slots
				WHERE owner_id = $1 AND start_time < $3 AND end_time > $2
			)
		`, s.OwnerID, s.StartTime, s.EndTime).Scan(&overlaps)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlaps {
			return ErrSlotOverlap
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO availability_slots (id, owner_id, start_time, end_time, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, FALSE, now(), now())
		`, s.ID, s.OwnerID, s.StartTime, s.EndTime)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotCols+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

// UpdateWindow changes a slot's time range. The booked guard is part of the
// statement so an edit racing a booking loses cleanly.
func (r *PgRepository) UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_slots
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND NOT is_booked
	`, id, start, end)
	if err != nil {
		return fmt.Errorf("update slot window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotBooked
	}

	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
		  AND NOT is_booked
	`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotBooked
	}

	return nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	var overlaps bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE owner_id = $1
			  AND id <> $4
			  AND start_time < $3
			  AND end_time > $2
		)
	`, ownerID, start, end, excludeID).Scan(&overlaps)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return overlaps, nil
}

func (r *PgRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+`
		FROM availability_slots
		WHERE owner_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
		LIMIT $4 OFFSET $5
	`, ownerID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *PgRepository) ListBookable(ctx context.Context, after time.Time, limit, offset int) ([]AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+`
		FROM availability_slots
		WHERE NOT is_booked
		  AND start_time > $1
		ORDER BY start_time
		LIMIT $2 OFFSET $3
	`, after, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]AvailabilitySlot, error) {
	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
