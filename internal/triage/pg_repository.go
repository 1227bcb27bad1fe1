package triage

import (
	"context"
	"errors"
	"fmt"

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

const triageCols = `id, kind, name, email, phone, answers, status, created_at, updated_at`

func scanRecord(row pgx.Row) (*TriageRecord, error) {
	var r TriageRecord

	err := row.Scan(
		&r.ID,
		&r.Kind,
		&r.Name,
		&r.Email,
		&r.Phone,
		&r.Answers,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &r, nil
}

func (r *PgRepository) Insert(ctx context.Context, rec *TriageRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO triage_records (id, kind, name, email, phone, answers, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, rec.ID, rec.Kind, rec.Name, rec.Email, rec.Phone, rec.Answers, StatusPending)
	if err != nil {
		return fmt.Errorf("insert triage record: %w", err)
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*TriageRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+triageCols+`
		FROM triage_records
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*TriageRecord, error) {
	fromStrs := make([]string, 0, len(from))
	for _, f := range from {
		fromStrs = append(fromStrs, string(f))
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE triage_records
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+triageCols+`
	`, id, to, fromStrs)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Distinguish a missing record from a CAS miss.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return rec, nil
}

func (r *PgRepository) List(ctx context.Context, kind *Kind, status *Status, limit, offset int) ([]TriageRecord, error) {
	query := `SELECT ` + triageCols + ` FROM triage_records WHERE 1=1`
	var args []any
	idx := 1

	if kind != nil {
		query += fmt.Sprintf(` AND kind = $%d`, idx)
		args = append(args, *kind)
		idx++
	}
	if status != nil {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *status)
		idx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TriageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertHistory(ctx context.Context, h *HistoryRecord) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO triage_history (id, triage_record_id, kind, name, email, phone, answers, user_id, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, h.ID, h.TriageRecordID, h.Kind, h.Name, h.Email, h.Phone, h.Answers, h.UserID)
	if err != nil {
		return fmt.Errorf("insert triage history: %w", err)
	}

	return nil
}
