// Package calendar defines the calendar store collaborator: plain CRUD over
// events. Availability is a data convention, not an API: a time slot is open
// for booking only when an event titled exactly AvailableTitle covers it.
// The absence of any event never means availability.
package calendar

import (
	"context"
	"time"
)

// AvailableTitle is the exact title marking a bookable slot.
const AvailableTitle = "Available"

// Event is a single calendar event.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Link        string    `json:"link,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// IsAvailable reports whether the event marks a bookable slot.
func (e *Event) IsAvailable() bool {
	return e.Title == AvailableTitle
}

// EventPatch describes a partial update to an event. Nil fields are left
// unchanged; Attendees are added to the existing list.
type EventPatch struct {
	Title       *string
	Start       *time.Time
	End         *time.Time
	Description *string
	Location    *string
	Attendees   []string
}

// Service is the calendar store interface. Implementations are external
// collaborators; the in-memory one in this package serves tests and local
// development.
type Service interface {
	// ListEvents returns events overlapping [timeMin, timeMax), ordered by
	// start time, capped at maxResults when maxResults > 0.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]*Event, error)
	// CreateEvent stores a new event and returns it with its assigned id.
	CreateEvent(ctx context.Context, event *Event) (*Event, error)
	// UpdateEvent applies a partial update to the event with the given id.
	UpdateEvent(ctx context.Context, eventID string, patch *EventPatch) (*Event, error)
	// DeleteEvent removes the event with the given id.
	DeleteEvent(ctx context.Context, eventID string) error
}
