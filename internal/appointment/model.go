package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Frequency string

const (
	FrequencySingle   Frequency = "single"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencySingle, FrequencyWeekly, FrequencyBiweekly:
		return true
	}
	return false
}

// Spacing returns the expected gap between consecutive occurrences, or
// zero for single events.
func (f Frequency) Spacing() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyBiweekly:
		return 14 * 24 * time.Hour
	}
	return 0
}

// Appointment is a post-triage therapy session. Occurrences created by one
// recurring request share a SeriesID but live independent lifecycles.
type Appointment struct {
	ID             uuid.UUID
	SeriesID       *uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	CompanyID      *uuid.UUID
	Time           time.Time
	SessionValue   *float64
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PendingReview reports whether the session's time has passed without a
// status resolution. Derived at read time, never stored.
func (a *Appointment) PendingReview(now time.Time) bool {
	return a.Status == StatusScheduled && a.Time.Before(now)
}
