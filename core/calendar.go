package core

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

type (
	// CalendarEvent is the gateway-level view of a remote calendar event.
	CalendarEvent struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Location    string    `json:"location"`
		Description string    `json:"description"`
		Start       time.Time `json:"start"`
		End         time.Time `json:"end"`
	}

	// CalendarEventChanges carries a partial update; nil fields are left untouched.
	CalendarEventChanges struct {
		Title       *string
		Location    *string
		Description *string
		Start       *time.Time
		End         *time.Time
	}

	// CalendarService wraps a remote calendar API. Remote/transport errors are
	// converted to plain error results at this boundary; callers never see a
	// raw transport failure.
	CalendarService interface {
		CreateEvent(ctx context.Context, ev CalendarEvent) (eventID string, err error)
		UpdateEvent(ctx context.Context, eventID string, changes CalendarEventChanges) error
		DeleteEvent(ctx context.Context, eventID string) error
		ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]CalendarEvent, error)
	}

	// CredentialStore persists the calendar OAuth token between runs.
	// It replaces ad-hoc token files buried inside the gateway.
	CredentialStore interface {
		Load() (*oauth2.Token, error)
		Save(*oauth2.Token) error
	}
)

func StringPtr(s string) *string     { return &s }
func TimePtr(t time.Time) *time.Time { return &t }
