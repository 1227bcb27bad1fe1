package triage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPatient      Kind = "patient"
	KindProfessional Kind = "professional"
	KindCompany      Kind = "company"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPatient, KindProfessional, KindCompany:
		return true
	}
	return false
}

type Status string

const (
	StatusPending      Status = "pending"
	StatusScheduled    Status = "scheduled"
	StatusConfirmed    Status = "confirmed"
	StatusNotConfirmed Status = "not_confirmed"
)

// TriageRecord is an intake submission not yet converted to a user account.
type TriageRecord struct {
	ID        uuid.UUID
	Kind      Kind
	Name      string
	Email     string
	Phone     string
	Answers   json.RawMessage
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryRecord is the permanent copy of a triage record written when it is
// confirmed and migrated to a user account.
type HistoryRecord struct {
	ID             uuid.UUID
	TriageRecordID uuid.UUID
	Kind           Kind
	Name           string
	Email          string
	Phone          string
	Answers        json.RawMessage
	UserID         *uuid.UUID
	ConfirmedAt    time.Time
}

// ProvisionedUser is returned by the identity collaborator when a confirmed
// record is migrated into a real account.
type ProvisionedUser struct {
	UserID       uuid.UUID
	TempPassword string
}
