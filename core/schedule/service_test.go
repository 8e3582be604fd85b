package schedule_test

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LAVINDI111/acnsms/core"
	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
	dummydb "github.com/LAVINDI111/acnsms/storage/database/dummy"
)

// --- fakes -----------------------------------------------------------------

type sentEmail struct {
	to      mail.Address
	subject string
	body    string
}

type fakeEmailService struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (svc *fakeEmailService) SendEmail(_ context.Context, to mail.Address, subject, body string) error {
	if svc.err != nil {
		return svc.err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = append(svc.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (svc *fakeEmailService) SendBulkEmail(ctx context.Context, to []mail.Address, subject, body string) core.BulkResult {
	var res core.BulkResult
	for _, addr := range to {
		res.Add(addr.Address, svc.SendEmail(ctx, addr, subject, body))
	}
	return res
}

type sentSMS struct {
	to   string
	body string
}

type fakeSMSService struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (svc *fakeSMSService) SendSMS(_ context.Context, toPhone, body string) error {
	if svc.err != nil {
		return svc.err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = append(svc.sent, sentSMS{to: toPhone, body: body})
	return nil
}

func (svc *fakeSMSService) SendBulkSMS(ctx context.Context, to []string, body string) core.BulkResult {
	var res core.BulkResult
	for _, phone := range to {
		res.Add(phone, svc.SendSMS(ctx, phone, body))
	}
	return res
}

type fakeCalendarService struct {
	created []core.CalendarEvent
	updated map[string]core.CalendarEventChanges
	err     error
}

func (svc *fakeCalendarService) CreateEvent(_ context.Context, ev core.CalendarEvent) (string, error) {
	if svc.err != nil {
		return "", svc.err
	}
	svc.created = append(svc.created, ev)
	return "evt-1", nil
}

func (svc *fakeCalendarService) UpdateEvent(_ context.Context, eventID string, changes core.CalendarEventChanges) error {
	if svc.err != nil {
		return svc.err
	}
	if svc.updated == nil {
		svc.updated = make(map[string]core.CalendarEventChanges)
	}
	svc.updated[eventID] = changes
	return nil
}

func (svc *fakeCalendarService) DeleteEvent(context.Context, string) error { return nil }

func (svc *fakeCalendarService) ListEvents(context.Context, time.Time, time.Time, int) ([]core.CalendarEvent, error) {
	return nil, nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// --- harness ---------------------------------------------------------------

type testEnv struct {
	svc      *schedule.Service
	repo     schedule.Repository
	usrRepo  user.Repository
	emailSvc *fakeEmailService
	smsSvc   *fakeSMSService
	calSvc   *fakeCalendarService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	env := &testEnv{
		repo:     dummydb.NewScheduleRepository(db),
		usrRepo:  dummydb.NewUserRepository(db),
		emailSvc: &fakeEmailService{},
		smsSvc:   &fakeSMSService{},
		calSvc:   &fakeCalendarService{},
	}
	conf := &core.Config{AppName: "ACNSMS", SendTimeout: time.Second}
	env.svc = schedule.NewService(conf, env.repo, env.usrRepo, env.calSvc, env.emailSvc, env.smsSvc, nopLogger{})
	return env
}

func (env *testEnv) createUser(t *testing.T, uname string, role user.Role, email, phone string) user.User {
	t.Helper()
	usr, err := env.usrRepo.CreateUser(context.Background(), user.User{
		Username: uname,
		Email:    email,
		Phone:    phone,
		Role:     role,
		IsActive: true,
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createModule(t *testing.T, code string, lecturerID int) schedule.Module {
	t.Helper()
	mod, err := env.repo.CreateModule(context.Background(), schedule.Module{
		Code:       code,
		Name:       "Data Structures",
		LecturerID: lecturerID,
		Credits:    3,
	})
	require.NoError(t, err)
	return mod
}

func (env *testEnv) createSchedule(t *testing.T, moduleID int, eventID string) schedule.Schedule {
	t.Helper()
	sched, err := env.repo.CreateSchedule(context.Background(), schedule.Schedule{
		ModuleID:        moduleID,
		Classroom:       "A1",
		Date:            date(2026, 9, 1),
		StartTime:       tod(8, 0),
		EndTime:         tod(10, 0),
		Status:          schedule.StatusScheduled,
		CalendarEventID: eventID,
	})
	require.NoError(t, err)
	return sched
}

func (env *testEnv) enroll(t *testing.T, moduleID int, studentIDs ...int) {
	t.Helper()
	for _, id := range studentIDs {
		require.NoError(t, env.repo.EnrollStudent(context.Background(), id, moduleID))
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tod(h, min int) time.Time {
	return time.Date(0, 1, 1, h, min, 0, 0, time.UTC)
}

func validReschedule() schedule.Reschedule {
	return schedule.Reschedule{
		Classroom: "B2",
		Date:      date(2026, 9, 3),
		StartTime: tod(10, 0),
		EndTime:   tod(12, 0),
	}
}

// seedClass creates a lecturer, an admin, three students (two with a phone,
// one email-only) and an enrolled module with one schedule.
func seedClass(t *testing.T, env *testEnv) (schedule.Schedule, user.User, user.User) {
	t.Helper()
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	admin := env.createUser(t, "boss", user.RoleAdmin, "boss@test.cd", "+243990000000")
	s1 := env.createUser(t, "alice", user.RoleStudent, "alice@test.cd", "+243991111111")
	s2 := env.createUser(t, "bob", user.RoleStudent, "bob@test.cd", "+243992222222")
	s3 := env.createUser(t, "carol", user.RoleStudent, "carol@test.cd", "")

	mod := env.createModule(t, "CS101", lecturer.ID)
	env.enroll(t, mod.ID, s1.ID, s2.ID, s3.ID)
	sched := env.createSchedule(t, mod.ID, "evt-1")
	return sched, lecturer, admin
}

// --- tests -----------------------------------------------------------------

func TestService_Reschedule_fanOut(t *testing.T) {
	env := newTestEnv(t)
	sched, lecturer, _ := seedClass(t, env)
	ctx := context.Background()

	res, err := env.svc.Reschedule(ctx, sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)

	// mutation persisted
	got, err := env.svc.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusRescheduled, got.Status)
	assert.Equal(t, "B2", got.Classroom)
	assert.Equal(t, date(2026, 9, 3), got.Date)
	assert.Equal(t, 10, got.StartTime.Hour())

	// calendar synced
	assert.Equal(t, schedule.CalendarSyncOK, res.Calendar.Status)
	changes, ok := env.calSvc.updated["evt-1"]
	require.True(t, ok, "calendar event was not updated")
	assert.Equal(t, "B2", *changes.Location)
	assert.Equal(t, date(2026, 9, 3).Add(10*time.Hour), *changes.Start)

	// every recipient, every channel they have an address for:
	// 3 students + admin = 4 emails; 2 students + admin = 3 SMS
	assert.Equal(t, 4, res.FanOut.EmailSent)
	assert.Equal(t, 3, res.FanOut.SMSSent)
	assert.Zero(t, res.FanOut.EmailFailed)
	assert.Zero(t, res.FanOut.SMSFailed)
	assert.Len(t, env.emailSvc.sent, 4)
	assert.Len(t, env.smsSvc.sent, 3)

	// message bodies carry both old and new slots
	body := env.emailSvc.sent[0].body
	assert.Contains(t, body, "LECTURE RESCHEDULED")
	assert.Contains(t, body, "Room: A1")
	assert.Contains(t, body, "Room: B2")
	assert.Contains(t, body, "2026-09-01")
	assert.Contains(t, body, "2026-09-03")
	assert.Equal(t, "Lecture Rescheduled: CS101", env.emailSvc.sent[0].subject)
	assert.Equal(t, "ACNSMS: CS101 rescheduled to 2026-09-03 10:00 in B2. Lecturer: jdoe", env.smsSvc.sent[0].body)

	// one audit row per (recipient, channel) attempt
	notifs, err := env.svc.Notifications(ctx, sched.ID)
	require.NoError(t, err)
	require.Len(t, notifs, 7)
	for _, notif := range notifs {
		assert.Equal(t, schedule.NotificationSent, notif.Status)
		assert.NotNil(t, notif.SentAt)
		assert.Equal(t, sched.ID, notif.ScheduleID)
	}
}

func TestService_Reschedule_smsFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	sched, lecturer, _ := seedClass(t, env)
	env.smsSvc.err = core.ErrSMSNotConfigured
	ctx := context.Background()

	res, err := env.svc.Reschedule(ctx, sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)

	// mutation survives the failed sends
	got, err := env.svc.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusRescheduled, got.Status)

	assert.Equal(t, 4, res.FanOut.EmailSent)
	assert.Equal(t, 3, res.FanOut.SMSFailed)
	assert.Zero(t, res.FanOut.SMSSent)
	require.Len(t, res.FanOut.Failures, 3)
	for _, failure := range res.FanOut.Failures {
		assert.Equal(t, schedule.ChannelSMS, failure.Channel)
		assert.Equal(t, core.ErrSMSNotConfigured.Error(), failure.Reason)
	}

	// failed attempts still get audit rows, without SentAt
	notifs, err := env.svc.Notifications(ctx, sched.ID)
	require.NoError(t, err)
	require.Len(t, notifs, 7)
	var failed int
	for _, notif := range notifs {
		if notif.Status == schedule.NotificationFailed {
			failed++
			assert.Equal(t, schedule.ChannelSMS, notif.Channel)
			assert.Nil(t, notif.SentAt)
		}
	}
	assert.Equal(t, 3, failed)
}

func TestService_Reschedule_calendarFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	sched, lecturer, _ := seedClass(t, env)
	env.calSvc.err = errors.New("google api: backend error")
	ctx := context.Background()

	res, err := env.svc.Reschedule(ctx, sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)

	assert.Equal(t, schedule.CalendarSyncFailed, res.Calendar.Status)
	assert.Contains(t, res.Calendar.Reason, "backend error")

	// mutation persisted and fan-out still ran in full
	got, err := env.svc.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusRescheduled, got.Status)
	assert.Equal(t, 4, res.FanOut.EmailSent)
	assert.Equal(t, 3, res.FanOut.SMSSent)
}

func TestService_Reschedule_noCalendarEventIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	mod := env.createModule(t, "CS102", lecturer.ID)
	sched := env.createSchedule(t, mod.ID, "" /* no event */)

	res, err := env.svc.Reschedule(context.Background(), sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)
	assert.Equal(t, schedule.CalendarSyncSkipped, res.Calendar.Status)
	assert.Empty(t, env.calSvc.updated)
}

func TestService_Reschedule_permissionDenied(t *testing.T) {
	env := newTestEnv(t)
	sched, _, _ := seedClass(t, env)
	otherLecturer := env.createUser(t, "prof2", user.RoleLecturer, "prof2@test.cd", "")
	student := env.createUser(t, "dave", user.RoleStudent, "dave@test.cd", "")
	ctx := context.Background()

	for _, actor := range []user.User{otherLecturer, student} {
		_, err := env.svc.Reschedule(ctx, sched.ID, validReschedule(), actor)
		assert.True(t, core.IsPermissionDenied(err), "actor %s: want permission error, got %v", actor.Username, err)
	}

	// nothing mutated, nothing sent
	got, err := env.svc.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusScheduled, got.Status)
	assert.Equal(t, "A1", got.Classroom)
	assert.Empty(t, env.emailSvc.sent)
	assert.Empty(t, env.smsSvc.sent)
}

func TestService_Reschedule_invalidInput(t *testing.T) {
	env := newTestEnv(t)
	sched, lecturer, _ := seedClass(t, env)
	ctx := context.Background()

	t.Run("start after end", func(t *testing.T) {
		r := validReschedule()
		r.StartTime, r.EndTime = r.EndTime, r.StartTime
		_, err := env.svc.Reschedule(ctx, sched.ID, r, lecturer)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "start_time", vErr.Fields[0].Field)
	})

	t.Run("missing classroom", func(t *testing.T) {
		r := validReschedule()
		r.Classroom = ""
		_, err := env.svc.Reschedule(ctx, sched.ID, r, lecturer)
		require.Error(t, err)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		_, err := env.svc.Reschedule(ctx, 999, validReschedule(), lecturer)
		assert.Equal(t, schedule.ErrNotFound, err)
	})

	assert.Empty(t, env.emailSvc.sent, "no sends on pre-mutation failures")
}

func TestService_Reschedule_notIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sched, lecturer, _ := seedClass(t, env)
	ctx := context.Background()

	_, err := env.svc.Reschedule(ctx, sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)
	_, err = env.svc.Reschedule(ctx, sched.ID, validReschedule(), lecturer)
	require.NoError(t, err)

	// each call fans out in full, even with identical payloads
	notifs, err := env.svc.Notifications(ctx, sched.ID)
	require.NoError(t, err)
	assert.Len(t, notifs, 14)
	assert.Len(t, env.emailSvc.sent, 8)
}

func TestService_Reschedule_adminAndEnrolledGetsDoubleNotified(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	admin := env.createUser(t, "boss", user.RoleAdmin, "boss@test.cd", "")
	mod := env.createModule(t, "CS103", lecturer.ID)
	// the admin is also enrolled; the union is not deduplicated
	env.enroll(t, mod.ID, admin.ID)
	sched := env.createSchedule(t, mod.ID, "evt-1")

	res, err := env.svc.Reschedule(context.Background(), sched.ID, validReschedule(), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FanOut.EmailSent)
}

func TestService_Create(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	mod := env.createModule(t, "CS101", lecturer.ID)
	ctx := context.Background()

	ns := schedule.NewSchedule{
		ModuleID:  mod.ID,
		Classroom: "A1",
		Date:      date(2026, 9, 1),
		StartTime: tod(8, 0),
		EndTime:   tod(10, 0),
	}
	res, err := env.svc.Create(ctx, ns, lecturer)
	require.NoError(t, err)
	assert.Equal(t, schedule.CalendarSyncOK, res.Calendar.Status)
	assert.Equal(t, "evt-1", res.Schedule.CalendarEventID)
	assert.Equal(t, schedule.StatusScheduled, res.Schedule.Status)

	require.Len(t, env.calSvc.created, 1)
	ev := env.calSvc.created[0]
	assert.Equal(t, "CS101 - Data Structures", ev.Title)
	assert.Equal(t, "A1", ev.Location)
	assert.Equal(t, "Lecturer: jdoe", ev.Description)

	t.Run("calendar failure keeps the schedule", func(t *testing.T) {
		env.calSvc.err = errors.New("google api: quota exceeded")
		res, err := env.svc.Create(ctx, ns, lecturer)
		require.NoError(t, err)
		assert.Equal(t, schedule.CalendarSyncFailed, res.Calendar.Status)
		assert.Empty(t, res.Schedule.CalendarEventID)

		_, err = env.svc.GetByID(ctx, res.Schedule.ID)
		assert.NoError(t, err)
	})

	t.Run("student cannot create", func(t *testing.T) {
		student := env.createUser(t, "alice", user.RoleStudent, "alice@test.cd", "")
		_, err := env.svc.Create(ctx, ns, student)
		assert.True(t, core.IsPermissionDenied(err))
	})
}

func TestService_CreateModule(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	admin := env.createUser(t, "boss", user.RoleAdmin, "boss@test.cd", "")
	ctx := context.Background()

	nm := schedule.NewModule{Code: "CS104", Name: "Networks", LecturerID: lecturer.ID}
	mod, err := env.svc.CreateModule(ctx, nm, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, mod.Credits, "credits default to 3")

	t.Run("lecturer cannot create", func(t *testing.T) {
		_, err := env.svc.CreateModule(ctx, nm, lecturer)
		assert.True(t, core.IsPermissionDenied(err))
	})

	t.Run("lecturer_id must be a lecturer", func(t *testing.T) {
		nm := schedule.NewModule{Code: "CS105", Name: "Databases", LecturerID: admin.ID}
		_, err := env.svc.CreateModule(ctx, nm, admin)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "lecturer_id", vErr.Fields[0].Field)
	})
}

func TestService_Enroll(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	admin := env.createUser(t, "boss", user.RoleAdmin, "boss@test.cd", "")
	student := env.createUser(t, "alice", user.RoleStudent, "alice@test.cd", "")
	mod := env.createModule(t, "CS101", lecturer.ID)
	ctx := context.Background()

	require.NoError(t, env.svc.Enroll(ctx, mod.ID, student.ID, admin))
	// enrolling twice is a no-op
	require.NoError(t, env.svc.Enroll(ctx, mod.ID, student.ID, admin))

	students, err := env.repo.QueryEnrolledStudents(ctx, mod.ID)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	t.Run("lecturer cannot enroll", func(t *testing.T) {
		err := env.svc.Enroll(ctx, mod.ID, student.ID, lecturer)
		assert.True(t, core.IsPermissionDenied(err))
	})

	t.Run("only students can be enrolled", func(t *testing.T) {
		err := env.svc.Enroll(ctx, mod.ID, lecturer.ID, admin)
		_, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
	})

	t.Run("unknown module", func(t *testing.T) {
		err := env.svc.Enroll(ctx, 999, student.ID, admin)
		assert.Equal(t, schedule.ErrModuleNotFound, err)
	})
}

func TestService_QueryForUser(t *testing.T) {
	env := newTestEnv(t)
	lect1 := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	lect2 := env.createUser(t, "prof2", user.RoleLecturer, "prof2@test.cd", "")
	admin := env.createUser(t, "boss", user.RoleAdmin, "boss@test.cd", "")
	alice := env.createUser(t, "alice", user.RoleStudent, "alice@test.cd", "")
	bob := env.createUser(t, "bob", user.RoleStudent, "bob@test.cd", "")

	mod1 := env.createModule(t, "CS101", lect1.ID)
	mod2 := env.createModule(t, "CS201", lect2.ID)
	env.enroll(t, mod1.ID, alice.ID)
	env.createSchedule(t, mod1.ID, "")
	env.createSchedule(t, mod1.ID, "")
	env.createSchedule(t, mod2.ID, "")
	ctx := context.Background()

	tests := []struct {
		name string
		usr  user.User
		want int
	}{
		{name: "admin sees all", usr: admin, want: 3},
		{name: "lecturer sees own modules", usr: lect1, want: 2},
		{name: "student sees enrolled modules", usr: alice, want: 2},
		{name: "unenrolled student sees none", usr: bob, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheds, err := env.svc.QueryForUser(ctx, tt.usr)
			require.NoError(t, err)
			assert.Len(t, scheds, tt.want)
		})
	}
}

func TestService_Feed(t *testing.T) {
	env := newTestEnv(t)
	lecturer := env.createUser(t, "jdoe", user.RoleLecturer, "jdoe@test.cd", "")
	mod := env.createModule(t, "CS101", lecturer.ID)
	env.createSchedule(t, mod.ID, "")

	feed, err := env.svc.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "CS101 - Data Structures", feed[0].Title)
	assert.Equal(t, "2026-09-01T08:00", feed[0].Start)
	assert.Equal(t, "2026-09-01T10:00", feed[0].End)
	assert.Equal(t, "jdoe", feed[0].Lecturer)
	assert.Equal(t, schedule.StatusScheduled, feed[0].Status)
}
