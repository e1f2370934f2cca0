package calendar

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryService is an in-memory Service implementation.
type MemoryService struct {
	mu     sync.RWMutex
	events map[string]*Event
}

var _ Service = (*MemoryService)(nil)

// NewMemoryService creates an empty in-memory calendar, optionally seeded
// with events. Seeded events without an id are assigned one.
func NewMemoryService(seed ...*Event) *MemoryService {
	s := &MemoryService{events: make(map[string]*Event)}
	for _, event := range seed {
		e := cloneEvent(event)
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.events[e.ID] = e
	}
	return s
}

// ListEvents returns events overlapping [timeMin, timeMax), ordered by start time.
func (s *MemoryService) ListEvents(_ context.Context, timeMin, timeMax time.Time, maxResults int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []*Event
	for _, event := range s.events {
		if !timeMin.IsZero() && !event.End.After(timeMin) {
			continue
		}
		if !timeMax.IsZero() && !event.Start.Before(timeMax) {
			continue
		}
		events = append(events, cloneEvent(event))
	}
	slices.SortFunc(events, func(a, b *Event) int {
		return a.Start.Compare(b.Start)
	})
	if maxResults > 0 && len(events) > maxResults {
		events = events[:maxResults]
	}
	return events, nil
}

// CreateEvent stores a new event and returns it with its assigned id.
func (s *MemoryService) CreateEvent(_ context.Context, event *Event) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := cloneEvent(event)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := s.events[e.ID]; ok {
		return nil, fmt.Errorf("calendar: event %s already exists", e.ID)
	}
	s.events[e.ID] = e
	return cloneEvent(e), nil
}

// UpdateEvent applies a partial update to the event with the given id.
func (s *MemoryService) UpdateEvent(_ context.Context, eventID string, patch *EventPatch) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("calendar: event not found: %s", eventID)
	}
	if patch != nil {
		if patch.Title != nil {
			event.Title = *patch.Title
		}
		if patch.Start != nil {
			event.Start = *patch.Start
		}
		if patch.End != nil {
			event.End = *patch.End
		}
		if patch.Description != nil {
			event.Description = *patch.Description
		}
		if patch.Location != nil {
			event.Location = *patch.Location
		}
		if len(patch.Attendees) > 0 {
			event.Attendees = append(event.Attendees, patch.Attendees...)
		}
	}
	return cloneEvent(event), nil
}

// DeleteEvent removes the event with the given id.
func (s *MemoryService) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return fmt.Errorf("calendar: event not found: %s", eventID)
	}
	delete(s.events, eventID)
	return nil
}

func cloneEvent(event *Event) *Event {
	e := *event
	e.Attendees = slices.Clone(event.Attendees)
	return &e
}
