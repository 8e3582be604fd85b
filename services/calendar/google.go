package calsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/LAVINDI111/acnsms/core"
)

var errNotAvailable = errors.New("calendar service not available")

// googleService wraps the Google Calendar API. Authentication is established
// once at startup; the oauth2 TokenSource refreshes lazily and refreshed
// tokens are written back to the CredentialStore. If auth cannot be
// established, every call returns a failure without re-authenticating.
type googleService struct {
	svc        *calendar.Service
	calendarID string
	logger     core.Logger
}

var _ core.CalendarService = (*googleService)(nil)

func NewGoogleService(conf *core.Config, creds core.CredentialStore, logger core.Logger) *googleService {
	svc := &googleService{calendarID: conf.Calendar.CalendarID, logger: logger}

	b, err := os.ReadFile(conf.Calendar.CredentialsFile)
	if err != nil {
		logger.Warn(fmt.Sprintf("Google Calendar credentials file not found: %v", err))
		return svc
	}
	oauthConf, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		logger.Warn(fmt.Sprintf("parsing Google Calendar credentials: %v", err))
		return svc
	}
	tok, err := creds.Load()
	if err != nil {
		logger.Warn(fmt.Sprintf("loading Google Calendar token: %v", err))
		return svc
	}

	ctx := context.Background()
	ts := &persistingTokenSource{
		src:   oauthConf.TokenSource(ctx, tok),
		store: creds,
		last:  tok,
	}
	gsvc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to build Google Calendar service: %v", err))
		return svc
	}
	svc.svc = gsvc
	logger.Info("Google Calendar service initialized successfully")
	return svc
}

func (svc *googleService) CreateEvent(ctx context.Context, ev core.CalendarEvent) (string, error) {
	if svc.svc == nil {
		return "", errNotAvailable
	}

	event := &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       eventDateTime(ev.Start),
		End:         eventDateTime(ev.End),
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	created, err := svc.svc.Events.Insert(svc.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating calendar event: %v", err)
	}
	return created.Id, nil
}

// UpdateEvent fetches the current event, overlays only the provided fields
// and writes the merged event back.
func (svc *googleService) UpdateEvent(ctx context.Context, eventID string, changes core.CalendarEventChanges) error {
	if svc.svc == nil {
		return errNotAvailable
	}

	event, err := svc.svc.Events.Get(svc.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("fetching calendar event %s: %v", eventID, err)
	}

	if changes.Title != nil {
		event.Summary = *changes.Title
	}
	if changes.Location != nil {
		event.Location = *changes.Location
	}
	if changes.Description != nil {
		event.Description = *changes.Description
	}
	if changes.Start != nil {
		event.Start = eventDateTime(*changes.Start)
	}
	if changes.End != nil {
		event.End = eventDateTime(*changes.End)
	}

	if _, err = svc.svc.Events.Update(svc.calendarID, eventID, event).Context(ctx).Do(); err != nil {
		return fmt.Errorf("updating calendar event %s: %v", eventID, err)
	}
	return nil
}

func (svc *googleService) DeleteEvent(ctx context.Context, eventID string) error {
	if svc.svc == nil {
		return errNotAvailable
	}
	if err := svc.svc.Events.Delete(svc.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting calendar event %s: %v", eventID, err)
	}
	return nil
}

func (svc *googleService) ListEvents(ctx context.Context, from, to time.Time, maxResults int) ([]core.CalendarEvent, error) {
	if svc.svc == nil {
		return nil, errNotAvailable
	}
	if from.IsZero() {
		from = time.Now().UTC()
	}
	if to.IsZero() {
		to = from.Add(30 * 24 * time.Hour)
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	res, err := svc.svc.Events.List(svc.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing calendar events: %v", err)
	}

	events := make([]core.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, core.CalendarEvent{
			ID:          item.Id,
			Title:       item.Summary,
			Location:    item.Location,
			Description: item.Description,
			Start:       parseEventDateTime(item.Start),
			End:         parseEventDateTime(item.End),
		})
	}
	return events, nil
}

func eventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: "UTC",
	}
}

func parseEventDateTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", edt.Date); err == nil { // all-day events
		return t
	}
	return time.Time{}
}

// persistingTokenSource writes refreshed tokens back to the CredentialStore
// so the next process start does not have to re-authenticate.
type persistingTokenSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	store core.CredentialStore
	last  *oauth2.Token
}

var _ oauth2.TokenSource = (*persistingTokenSource)(nil)

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	tok, err := ts.src.Token()
	if err != nil {
		return nil, err
	}
	if ts.last == nil || tok.AccessToken != ts.last.AccessToken {
		if err := ts.store.Save(tok); err != nil {
			return nil, err
		}
		ts.last = tok
	}
	return tok, nil
}
