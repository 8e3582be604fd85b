package calsvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LAVINDI111/acnsms/core"
)

// dummyService is an in-memory calendar for DEV and tests.
type dummyService struct {
	mu     sync.RWMutex
	events map[string]core.CalendarEvent
}

var _ core.CalendarService = (*dummyService)(nil)

func NewDummyService() *dummyService {
	return &dummyService{events: make(map[string]core.CalendarEvent)}
}

func (svc *dummyService) CreateEvent(_ context.Context, ev core.CalendarEvent) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ev.ID = uuid.New().String()
	svc.events[ev.ID] = ev
	return ev.ID, nil
}

func (svc *dummyService) UpdateEvent(_ context.Context, eventID string, changes core.CalendarEventChanges) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ev, ok := svc.events[eventID]
	if !ok {
		return fmt.Errorf("calendar event %s not found", eventID)
	}
	if changes.Title != nil {
		ev.Title = *changes.Title
	}
	if changes.Location != nil {
		ev.Location = *changes.Location
	}
	if changes.Description != nil {
		ev.Description = *changes.Description
	}
	if changes.Start != nil {
		ev.Start = *changes.Start
	}
	if changes.End != nil {
		ev.End = *changes.End
	}
	svc.events[eventID] = ev
	return nil
}

func (svc *dummyService) DeleteEvent(_ context.Context, eventID string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.events[eventID]; !ok {
		return fmt.Errorf("calendar event %s not found", eventID)
	}
	delete(svc.events, eventID)
	return nil
}

func (svc *dummyService) ListEvents(_ context.Context, from, to time.Time, maxResults int) ([]core.CalendarEvent, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if maxResults <= 0 {
		maxResults = 10
	}
	events := make([]core.CalendarEvent, 0, len(svc.events))
	for _, ev := range svc.events {
		if !from.IsZero() && ev.End.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Start.After(to) {
			continue
		}
		events = append(events, ev)
		if len(events) == maxResults {
			break
		}
	}
	return events, nil
}

// Event returns a stored event; tests use it to assert sync results.
func (svc *dummyService) Event(eventID string) (core.CalendarEvent, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	ev, ok := svc.events[eventID]
	return ev, ok
}
