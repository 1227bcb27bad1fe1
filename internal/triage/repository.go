package triage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound    = errors.New("triage record not found")
	ErrInvalidTransition = errors.New("invalid triage status transition")
	ErrInvalidRecord     = errors.New("invalid triage record")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Insert(ctx context.Context, rec *TriageRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*TriageRecord, error)

	// UpdateStatus transitions id to the target status only if the current
	// status is one of from; returns ErrInvalidTransition otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*TriageRecord, error)

	List(ctx context.Context, kind *Kind, status *Status, limit, offset int) ([]TriageRecord, error)

	InsertHistory(ctx context.Context, h *HistoryRecord) error
}

// UserProvisioner is the identity collaborator invoked when a triage record
// is confirmed.
type UserProvisioner interface {
	CreateUserFromTriage(ctx context.Context, rec *TriageRecord) (*ProvisionedUser, error)
}
