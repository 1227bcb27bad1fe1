package appointment

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

const apptCols = `id, series_id, patient_id, professional_id, company_id, appointment_time, session_value, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SeriesID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.CompanyID,
		&a.Time,
		&a.SessionValue,
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

func (r *PgRepository) InsertBatch(ctx context.Context, appts []Appointment) error {
	if len(appts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range appts {
		a := &appts[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, series_id, patient_id, professional_id, company_id, appointment_time, session_value, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', now(), now())
		`, a.ID, a.SeriesID, a.PatientID, a.ProfessionalID, a.CompanyID, a.Time, a.SessionValue)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptCols+`
	`, id, to, from)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) UpdateTime(ctx context.Context, id uuid.UUID, t time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_time = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING `+apptCols+`
	`, id, t)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE professional_id = $1
		  AND appointment_time >= $2
		  AND appointment_time < $3
		ORDER BY appointment_time
		LIMIT $4 OFFSET $5
	`, professionalID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE patient_id = $1
		  AND appointment_time >= $2
		  AND appointment_time < $3
		ORDER BY appointment_time
		LIMIT $4 OFFSET $5
	`, patientID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListPendingReview(ctx context.Context, professionalID *uuid.UUID, now time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + apptCols + `
		FROM appointments
		WHERE status = 'scheduled'
		  AND appointment_time < $1`
	args := []any{now}

	if professionalID != nil {
		query += ` AND professional_id = $2`
		args = append(args, *professionalID)
	}
	query += ` ORDER BY appointment_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
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
