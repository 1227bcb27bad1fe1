package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo        Repository
	provisioner UserProvisioner
	log         zerolog.Logger
}

func NewService(repo Repository, provisioner UserProvisioner, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		provisioner: provisioner,
		log:         log.With().Str("component", "triage").Logger(),
	}
}

type SubmitInput struct {
	Kind    Kind
	Name    string
	Email   string
	Phone   string
	Answers json.RawMessage
}

// Submit stores a public intake form submission as a pending record.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*TriageRecord, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, in.Kind)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRecord)
	}

	rec := &TriageRecord{
		ID:      uuid.New(),
		Kind:    in.Kind,
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Answers: in.Answers,
		Status:  StatusPending,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("submit triage record: %w", err)
	}

	s.log.Info().
		Str("triage_id", rec.ID.String()).
		Str("kind", string(rec.Kind)).
		Msg("triage record submitted")

	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TriageRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, kind *Kind, status *Status, limit, offset int) ([]TriageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, kind, status, limit, offset)
}

// MarkNotConfirmed closes a record that will not proceed. Allowed from any
// live state; a record already closed or migrated stays put.
func (s *Service) MarkNotConfirmed(ctx context.Context, id uuid.UUID) (*TriageRecord, error) {
	return s.repo.UpdateStatus(ctx, id, StatusNotConfirmed,
		StatusPending, StatusScheduled, StatusConfirmed)
}

// Reopen returns a closed record to the pending pool.
func (s *Service) Reopen(ctx context.Context, id uuid.UUID) (*TriageRecord, error) {
	return s.repo.UpdateStatus(ctx, id, StatusPending, StatusNotConfirmed)
}

// Finalize migrates a confirmed record: provisions the user account and
// writes the permanent history copy. Called by the booking engine after its
// confirm transaction commits.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*ProvisionedUser, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	user, err := s.provisioner.CreateUserFromTriage(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("provision user from triage %s: %w", id, err)
	}

	hist := &HistoryRecord{
		ID:             uuid.New(),
		TriageRecordID: rec.ID,
		Kind:           rec.Kind,
		Name:           rec.Name,
		Email:          rec.Email,
		Phone:          rec.Phone,
		Answers:        rec.Answers,
		UserID:         &user.UserID,
	}
	if err := s.repo.InsertHistory(ctx, hist); err != nil {
		return nil, fmt.Errorf("archive triage %s: %w", id, err)
	}

	s.log.Info().
		Str("triage_id", rec.ID.String()).
		Str("user_id", user.UserID.String()).
		Msg("triage record migrated to user account")

	return user, nil
}
