package echoapi

import (
	"time"

	"github.com/LAVINDI111/acnsms/core"
	"github.com/LAVINDI111/acnsms/core/schedule"
)

// wire formats for schedule payloads
const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

type (
	// newScheduleRequest carries date and times as plain strings so clients
	// are not forced into RFC 3339 timestamps for date-only/time-only fields.
	newScheduleRequest struct {
		ModuleID  int    `json:"module_id"`
		Classroom string `json:"classroom"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}

	rescheduleRequest struct {
		Classroom string `json:"classroom"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
)

func parseDate(field, val string) (time.Time, error) {
	t, err := time.Parse(dateFormat, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be a valid date (YYYY-MM-DD)"})
	}
	return t, nil
}

func parseTime(field, val string) (time.Time, error) {
	t, err := time.Parse(timeFormat, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be a valid time (HH:MM)"})
	}
	return t, nil
}

func (req newScheduleRequest) toNewSchedule() (schedule.NewSchedule, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return schedule.NewSchedule{}, err
	}
	start, err := parseTime("start_time", req.StartTime)
	if err != nil {
		return schedule.NewSchedule{}, err
	}
	end, err := parseTime("end_time", req.EndTime)
	if err != nil {
		return schedule.NewSchedule{}, err
	}
	return schedule.NewSchedule{
		ModuleID:  req.ModuleID,
		Classroom: req.Classroom,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}, nil
}

func (req rescheduleRequest) toReschedule() (schedule.Reschedule, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return schedule.Reschedule{}, err
	}
	start, err := parseTime("start_time", req.StartTime)
	if err != nil {
		return schedule.Reschedule{}, err
	}
	end, err := parseTime("end_time", req.EndTime)
	if err != nil {
		return schedule.Reschedule{}, err
	}
	return schedule.Reschedule{
		Classroom: req.Classroom,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}, nil
}
