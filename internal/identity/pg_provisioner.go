// Package identity provisions user accounts from confirmed triage records.
// The core only depends on the triage.UserProvisioner interface; this is
// the Postgres-backed implementation used by the service binaries.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacemind/clinic-scheduling/internal/triage"
)

type PgProvisioner struct {
	pool *pgxpool.Pool
}

func NewPgProvisioner(pool *pgxpool.Pool) *PgProvisioner {
	return &PgProvisioner{pool: pool}
}

func (p *PgProvisioner) CreateUserFromTriage(ctx context.Context, rec *triage.TriageRecord) (*triage.ProvisionedUser, error) {
	temp, err := tempPassword()
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	_, err = p.pool.Exec(ctx, `
		INSERT INTO users (id, triage_record_id, name, email, temp_password, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, id, rec.ID, rec.Name, rec.Email, temp)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &triage.ProvisionedUser{UserID: id, TempPassword: temp}, nil
}

func tempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
