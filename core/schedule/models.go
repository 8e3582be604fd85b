package schedule

import (
	"time"

	"github.com/LAVINDI111/acnsms/core"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

// Module is a course taught by exactly one lecturer.
// Read-only after module-setup time.
type Module struct {
	ID          int       `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	LecturerID  int       `json:"lecturer_id" db:"lecturer_id"`
	Credits     int       `json:"credits" db:"credits"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

func (m Module) Title() string { return m.Code + " - " + m.Name }

// Schedule is a single lecture slot of a Module. Date holds the calendar day;
// StartTime/EndTime hold the time of day only (zero date).
// Cancellation is a status, never a removal.
type Schedule struct {
	ID              int       `json:"id" db:"id"`
	ModuleID        int       `json:"module_id" db:"module_id"`
	Classroom       string    `json:"classroom" db:"classroom"`
	Date            time.Time `json:"date" db:"date"`
	StartTime       time.Time `json:"start_time" db:"start_time"`
	EndTime         time.Time `json:"end_time" db:"end_time"`
	Status          Status    `json:"status" db:"status"`
	CalendarEventID string    `json:"calendar_event_id,omitempty" db:"calendar_event_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// StartDateTime combines Date and StartTime into a full timestamp (UTC).
func (s Schedule) StartDateTime() time.Time {
	return combine(s.Date, s.StartTime)
}

// EndDateTime combines Date and EndTime into a full timestamp (UTC).
func (s Schedule) EndDateTime() time.Time {
	return combine(s.Date, s.EndTime)
}

func combine(date, tod time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC)
}

// Notification is a write-once audit row: one per
// (schedule-change event, recipient, channel) attempt.
// A retry appends a new row, it never mutates an old one.
type Notification struct {
	ID         int                `json:"id" db:"id"`
	ScheduleID int                `json:"schedule_id" db:"schedule_id"`
	UserID     int                `json:"user_id" db:"user_id"`
	Channel    Channel            `json:"channel" db:"channel"`
	Status     NotificationStatus `json:"status" db:"status"`
	Message    string             `json:"message" db:"message"`
	SentAt     *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"` // UTC
}

// NewModule contains information needed to create a Module.
type NewModule struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	LecturerID  int    `json:"lecturer_id" validate:"required"`
	Credits     int    `json:"credits" validate:"omitempty,min=1"`
	Description string `json:"description"`
}

func (nm *NewModule) Validate() error {
	nm.Code = core.CleanString(nm.Code)
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)
	return core.Validate.Struct(nm)
}

// NewSchedule contains information needed to create a Schedule.
type NewSchedule struct {
	ModuleID  int       `json:"module_id" validate:"required"`
	Classroom string    `json:"classroom" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

func (ns *NewSchedule) Validate() error {
	ns.Classroom = core.CleanString(ns.Classroom)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return validateTimes(ns.StartTime, ns.EndTime)
}

// Reschedule carries the mutation applied to an existing Schedule.
type Reschedule struct {
	Classroom string    `json:"classroom" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

func (r *Reschedule) Validate() error {
	r.Classroom = core.CleanString(r.Classroom)
	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	return validateTimes(r.StartTime, r.EndTime)
}

func validateTimes(start, end time.Time) error {
	if !start.Before(end) {
		return core.NewValidationError(
			errInvalidTimes,
			core.FieldError{Field: "start_time", Error: errInvalidTimes.Error()},
		)
	}
	return nil
}

// CalendarSyncStatus reports the best-effort calendar sync outcome.
type CalendarSyncStatus string

const (
	CalendarSyncOK      CalendarSyncStatus = "ok"
	CalendarSyncSkipped CalendarSyncStatus = "skipped"
	CalendarSyncFailed  CalendarSyncStatus = "failed"
)

type CalendarOutcome struct {
	Status CalendarSyncStatus `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

// SendFailure identifies one failed notification attempt with enough context
// to retry manually later.
type SendFailure struct {
	UserID  int     `json:"user_id"`
	Channel Channel `json:"channel"`
	Reason  string  `json:"reason"`
}

// FanOutSummary aggregates the notification fan-out of one reschedule event.
type FanOutSummary struct {
	EmailSent   int           `json:"email_sent"`
	EmailFailed int           `json:"email_failed"`
	SMSSent     int           `json:"sms_sent"`
	SMSFailed   int           `json:"sms_failed"`
	Failures    []SendFailure `json:"failures,omitempty"`
}

// RescheduleResult is a partial-success report: once the schedule mutation is
// persisted, calendar and notification failures are carried here as warnings,
// never as an overall error.
type RescheduleResult struct {
	Schedule Schedule        `json:"schedule"`
	Calendar CalendarOutcome `json:"calendar_sync"`
	FanOut   FanOutSummary   `json:"notifications"`
}

type CreateResult struct {
	Schedule Schedule        `json:"schedule"`
	Calendar CalendarOutcome `json:"calendar_sync"`
}

// FeedItem is the calendar-feed projection of a Schedule.
type FeedItem struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Classroom string `json:"classroom"`
	Lecturer  string `json:"lecturer"`
	Status    Status `json:"status"`
}
