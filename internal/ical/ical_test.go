package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
)

func TestRender(t *testing.T) {
	appt := &appointment.Appointment{
		ID:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Time:   time.Date(2026, 4, 6, 14, 0, 0, 0, time.UTC),
		Status: appointment.StatusScheduled,
	}

	out := Render(appt)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"UID:6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"DTSTART:20260406T140000Z",
		"DTEND:20260406T145000Z",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	if !strings.HasSuffix(out, "END:VCALENDAR\r\n") {
		t.Fatal("output does not end with CRLF-terminated VCALENDAR")
	}
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if strings.ContainsAny(line, "\n\r") {
			t.Fatalf("line contains bare newline: %q", line)
		}
	}
}

func TestRenderNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	appt := &appointment.Appointment{
		ID:     uuid.New(),
		Time:   time.Date(2026, 4, 6, 11, 0, 0, 0, loc),
		Status: appointment.StatusScheduled,
	}

	out := Render(appt)
	if !strings.Contains(out, "DTSTART:20260406T140000Z") {
		t.Fatalf("start not rendered in UTC:\n%s", out)
	}
}

func TestRenderCancelledStatus(t *testing.T) {
	appt := &appointment.Appointment{
		ID:     uuid.New(),
		Time:   time.Date(2026, 4, 6, 14, 0, 0, 0, time.UTC),
		Status: appointment.StatusCancelled,
	}

	if out := Render(appt); !strings.Contains(out, "STATUS:CANCELLED") {
		t.Fatalf("cancelled appointment not marked:\n%s", out)
	}
}
