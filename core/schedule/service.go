package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/LAVINDI111/acnsms/core"
	"github.com/LAVINDI111/acnsms/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("schedule not found")
	ErrModuleNotFound = errors.New("module not found")

	errInvalidTimes = errors.New("start time must be before end time")
	errAccessDenied = "access denied"
)

type (
	// Repository is the persistence surface of the schedule domain.
	Repository interface {
		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModule(ctx context.Context, id int) (Module, error)
		QueryAllModules(ctx context.Context) ([]Module, error)
		QueryModulesByLecturer(ctx context.Context, lecturerID int) ([]Module, error)
		QueryModulesByStudent(ctx context.Context, studentID int) ([]Module, error)
		EnrollStudent(ctx context.Context, studentID, moduleID int) error
		QueryEnrolledStudents(ctx context.Context, moduleID int) ([]user.User, error)

		CreateSchedule(ctx context.Context, sched Schedule) (Schedule, error)
		GetSchedule(ctx context.Context, id int) (Schedule, error)
		// SaveSchedule persists a full mutation of an existing Schedule.
		SaveSchedule(ctx context.Context, sched Schedule) (Schedule, error)
		QueryAllSchedules(ctx context.Context) ([]Schedule, error)
		QuerySchedulesByModules(ctx context.Context, moduleIDs ...int) ([]Schedule, error)

		// AppendNotifications persists audit rows in one batch.
		AppendNotifications(ctx context.Context, notifs []Notification) error
		QueryNotificationsBySchedule(ctx context.Context, scheduleID int) ([]Notification, error)
	}

	// Service orchestrates schedule mutations and their decoupled side
	// effects: calendar sync and notification fan-out. Gateways are injected
	// so tests can substitute fakes.
	Service struct {
		appName     string
		sendTimeout time.Duration
		repo        Repository
		usrRepo     user.Repository
		calSvc      core.CalendarService
		emailSvc    core.EmailService
		smsSvc      core.SMSService
		logger      core.Logger
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	usrRepo user.Repository,
	calSvc core.CalendarService,
	emailSvc core.EmailService,
	smsSvc core.SMSService,
	logger core.Logger,
) *Service {
	return &Service{
		appName:     conf.AppName,
		sendTimeout: conf.SendTimeout,
		repo:        repo,
		usrRepo:     usrRepo,
		calSvc:      calSvc,
		emailSvc:    emailSvc,
		smsSvc:      smsSvc,
		logger:      logger,
	}
}

// canManage reports whether actor may create/mutate schedules of mod:
// the owning lecturer or any admin.
func canManage(mod Module, actor user.User) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsLecturer() && mod.LecturerID == actor.ID
}

func (svc *Service) CreateModule(ctx context.Context, nm NewModule, actor user.User) (Module, error) {
	if !actor.IsAdmin() {
		return Module{}, core.NewPermissionError(errAccessDenied)
	}
	if err := nm.Validate(); err != nil {
		return Module{}, err
	}
	lect, err := svc.usrRepo.GetUserByID(ctx, nm.LecturerID)
	if err != nil {
		return Module{}, core.NewValidationError(err, core.FieldError{Field: "lecturer_id", Error: "lecturer not found"})
	}
	if !lect.IsLecturer() {
		return Module{}, core.NewValidationError(nil, core.FieldError{Field: "lecturer_id", Error: "user is not a lecturer"})
	}
	credits := nm.Credits
	if credits == 0 {
		credits = 3
	}
	mod := Module{
		Code:        nm.Code,
		Name:        nm.Name,
		LecturerID:  nm.LecturerID,
		Credits:     credits,
		Description: nm.Description,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateModule(ctx, mod)
}

func (svc *Service) Enroll(ctx context.Context, moduleID, studentID int, actor user.User) error {
	if !actor.IsAdmin() {
		return core.NewPermissionError(errAccessDenied)
	}
	if _, err := svc.repo.GetModule(ctx, moduleID); err != nil {
		return err
	}
	student, err := svc.usrRepo.GetUserByID(ctx, studentID)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "student not found"})
	}
	if !student.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}
	return svc.repo.EnrollStudent(ctx, studentID, moduleID)
}

// Create persists a new Schedule, then attempts the calendar event creation
// best-effort: a calendar failure is reported in the result, the schedule
// stays persisted.
func (svc *Service) Create(ctx context.Context, ns NewSchedule, actor user.User) (CreateResult, error) {
	if err := ns.Validate(); err != nil {
		return CreateResult{}, err
	}
	mod, err := svc.repo.GetModule(ctx, ns.ModuleID)
	if err != nil {
		return CreateResult{}, err
	}
	if !canManage(mod, actor) {
		return CreateResult{}, core.NewPermissionError(errAccessDenied)
	}

	now := time.Now().UTC()
	sched := Schedule{
		ModuleID:  ns.ModuleID,
		Classroom: ns.Classroom,
		Date:      ns.Date,
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sched, err = svc.repo.CreateSchedule(ctx, sched)
	if err != nil {
		return CreateResult{}, err
	}

	res := CreateResult{Schedule: sched, Calendar: CalendarOutcome{Status: CalendarSyncOK}}

	lecturer, err := svc.usrRepo.GetUserByID(ctx, mod.LecturerID)
	if err != nil {
		svc.logger.Error("loading lecturer for calendar event", err)
		res.Calendar = CalendarOutcome{Status: CalendarSyncFailed, Reason: err.Error()}
		return res, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, svc.sendTimeout)
	defer cancel()
	eventID, err := svc.calSvc.CreateEvent(sendCtx, core.CalendarEvent{
		Title:       mod.Title(),
		Location:    sched.Classroom,
		Description: "Lecturer: " + lecturer.Username,
		Start:       sched.StartDateTime(),
		End:         sched.EndDateTime(),
	})
	if err != nil {
		svc.logger.Warn("creating calendar event", err)
		res.Calendar = CalendarOutcome{Status: CalendarSyncFailed, Reason: err.Error()}
		return res, nil
	}

	sched.CalendarEventID = eventID
	sched.UpdatedAt = time.Now().UTC()
	if sched, err = svc.repo.SaveSchedule(ctx, sched); err != nil {
		svc.logger.Error("saving calendar event id", err)
		res.Calendar = CalendarOutcome{Status: CalendarSyncFailed, Reason: err.Error()}
		return res, nil
	}
	res.Schedule = sched
	return res, nil
}

// Reschedule applies a schedule mutation and drives its side effects.
//
// Pre-mutation failures (validation, not found, permission) abort the whole
// operation with an error. The SaveSchedule call is the durability boundary:
// everything after it is best-effort and reported through the result, never
// rolled back.
func (svc *Service) Reschedule(ctx context.Context, id int, r Reschedule, actor user.User) (RescheduleResult, error) {
	if err := r.Validate(); err != nil {
		return RescheduleResult{}, err
	}

	sched, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return RescheduleResult{}, err
	}
	mod, err := svc.repo.GetModule(ctx, sched.ModuleID)
	if err != nil {
		return RescheduleResult{}, err
	}
	if !canManage(mod, actor) {
		return RescheduleResult{}, core.NewPermissionError(errAccessDenied)
	}

	// snapshot the pre-change values for the notification text
	oldDate, oldClassroom, oldStart := sched.Date, sched.Classroom, sched.StartTime

	sched.Classroom = r.Classroom
	sched.Date = r.Date
	sched.StartTime = r.StartTime
	sched.EndTime = r.EndTime
	sched.Status = StatusRescheduled
	sched.UpdatedAt = time.Now().UTC()
	sched, err = svc.repo.SaveSchedule(ctx, sched)
	if err != nil {
		return RescheduleResult{}, err
	}

	res := RescheduleResult{Schedule: sched}
	res.Calendar = svc.syncCalendar(ctx, sched, mod)

	lecturer, err := svc.usrRepo.GetUserByID(ctx, mod.LecturerID)
	if err != nil {
		// fan-out still proceeds; lecturer username just goes missing from the text
		svc.logger.Error("loading lecturer for notifications", err)
	}
	res.FanOut = svc.notifyReschedule(ctx, sched, mod, lecturer, oldDate, oldClassroom, oldStart)
	return res, nil
}

// syncCalendar pushes the new time/location to the remote calendar.
// Schedules that never got a calendar event (creation sync failed) are
// skipped: create-on-reschedule is out of scope.
func (svc *Service) syncCalendar(ctx context.Context, sched Schedule, mod Module) CalendarOutcome {
	if sched.CalendarEventID == "" {
		return CalendarOutcome{Status: CalendarSyncSkipped, Reason: "no calendar event attached"}
	}

	sendCtx, cancel := context.WithTimeout(ctx, svc.sendTimeout)
	defer cancel()
	err := svc.calSvc.UpdateEvent(sendCtx, sched.CalendarEventID, core.CalendarEventChanges{
		Title:    core.StringPtr(mod.Title()),
		Location: core.StringPtr(sched.Classroom),
		Start:    core.TimePtr(sched.StartDateTime()),
		End:      core.TimePtr(sched.EndDateTime()),
	})
	if err != nil {
		svc.logger.Warn("updating calendar event", err)
		return CalendarOutcome{Status: CalendarSyncFailed, Reason: err.Error()}
	}
	return CalendarOutcome{Status: CalendarSyncOK}
}

// QueryForUser returns the schedules visible to usr:
// enrolled modules for a student, taught modules for a lecturer, everything for an admin.
func (svc *Service) QueryForUser(ctx context.Context, usr user.User) ([]Schedule, error) {
	if usr.IsAdmin() {
		return svc.repo.QueryAllSchedules(ctx)
	}

	var mods []Module
	var err error
	if usr.IsLecturer() {
		mods, err = svc.repo.QueryModulesByLecturer(ctx, usr.ID)
	} else {
		mods, err = svc.repo.QueryModulesByStudent(ctx, usr.ID)
	}
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return []Schedule{}, nil
	}
	ids := make([]int, 0, len(mods))
	for _, mod := range mods {
		ids = append(ids, mod.ID)
	}
	return svc.repo.QuerySchedulesByModules(ctx, ids...)
}

// ModulesForUser mirrors QueryForUser for modules.
func (svc *Service) ModulesForUser(ctx context.Context, usr user.User) ([]Module, error) {
	switch {
	case usr.IsAdmin():
		return svc.repo.QueryAllModules(ctx)
	case usr.IsLecturer():
		return svc.repo.QueryModulesByLecturer(ctx, usr.ID)
	default:
		return svc.repo.QueryModulesByStudent(ctx, usr.ID)
	}
}

func (svc *Service) GetByID(ctx context.Context, id int) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *Service) Notifications(ctx context.Context, scheduleID int) ([]Notification, error) {
	return svc.repo.QueryNotificationsBySchedule(ctx, scheduleID)
}

// Feed projects all schedules into the calendar-feed shape.
func (svc *Service) Feed(ctx context.Context) ([]FeedItem, error) {
	scheds, err := svc.repo.QueryAllSchedules(ctx)
	if err != nil {
		return nil, err
	}
	mods, err := svc.repo.QueryAllModules(ctx)
	if err != nil {
		return nil, err
	}
	modByID := make(map[int]Module, len(mods))
	lecturerByMod := make(map[int]string, len(mods))
	for _, mod := range mods {
		modByID[mod.ID] = mod
		if lect, err := svc.usrRepo.GetUserByID(ctx, mod.LecturerID); err == nil {
			lecturerByMod[mod.ID] = lect.Username
		}
	}

	feed := make([]FeedItem, 0, len(scheds))
	for _, sched := range scheds {
		mod := modByID[sched.ModuleID]
		feed = append(feed, FeedItem{
			ID:        sched.ID,
			Title:     mod.Title(),
			Start:     sched.Date.Format(dateFormat) + "T" + sched.StartTime.Format(timeFormat),
			End:       sched.Date.Format(dateFormat) + "T" + sched.EndTime.Format(timeFormat),
			Classroom: sched.Classroom,
			Lecturer:  lecturerByMod[sched.ModuleID],
			Status:    sched.Status,
		})
	}
	return feed, nil
}
