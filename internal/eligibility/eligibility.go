// Package eligibility holds the registration-window rule: sign-up and
// cancellation for an event close at the end of the day before the event.
package eligibility

import (
	"errors"
	"time"
)

var ErrWindowClosed = errors.New("registration window closed for this event")

// Deadline is the last instant at which registering or cancelling is still
// allowed: 23:59:59.999 on the calendar day before the event, in UTC.
func Deadline(eventDate time.Time) time.Time {
	d := eventDate.UTC()
	startOfDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	return startOfDay.Add(-time.Millisecond)
}

// Open reports whether the window is still open at the given instant.
// The deadline itself is inside the window; the first instant of the
// event day is not.
func Open(now, eventDate time.Time) bool {
	return !now.UTC().After(Deadline(eventDate))
}

// Check returns ErrWindowClosed when the window has passed. Check-in has no
// such gate: it happens at the live event, after this window is long gone.
func Check(now, eventDate time.Time) error {
	if !Open(now, eventDate) {
		return ErrWindowClosed
	}
	return nil
}
