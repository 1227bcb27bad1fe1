// Package ical renders appointments as iCalendar text. Pure formatting,
// no core state.
package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
)

const (
	sessionLength = 50 * time.Minute
	stampLayout   = "20060102T150405Z"
)

// Render produces a VCALENDAR blob for one session. UID is the appointment
// id; the event runs from the appointment time for the standard 50-minute
// session.
func Render(a *appointment.Appointment) string {
	start := a.Time.UTC()
	end := start.Add(sessionLength)

	var b strings.Builder
	writeLine := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//solacemind//clinic-scheduling//EN")
	writeLine("BEGIN:VEVENT")
	writeLine(fmt.Sprintf("UID:%s", a.ID))
	writeLine(fmt.Sprintf("DTSTAMP:%s", time.Now().UTC().Format(stampLayout)))
	writeLine(fmt.Sprintf("DTSTART:%s", start.Format(stampLayout)))
	writeLine(fmt.Sprintf("DTEND:%s", end.Format(stampLayout)))
	writeLine("SUMMARY:Therapy session")
	writeLine(fmt.Sprintf("STATUS:%s", eventStatus(a.Status)))
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")

	return b.String()
}

func eventStatus(s appointment.Status) string {
	switch s {
	case appointment.StatusCancelled:
		return "CANCELLED"
	default:
		return "CONFIRMED"
	}
}
