package models

import (
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsActive    bool      `json:"is_active"` // admin toggle, independent of the window
}

// ActiveAt reports whether the event accepts claims at the given instant.
// An event with a missing or inverted window is never active.
func (e Event) ActiveAt(now time.Time) bool {
	if e.StartTime.IsZero() || e.EndTime.IsZero() || !e.StartTime.Before(e.EndTime) {
		return false
	}
	return e.IsActive && !now.Before(e.StartTime) && !now.After(e.EndTime)
}
