package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
)

// lib/pq returns TIME columns as raw strings in this layout.
const dbTimeFormat = "15:04:05"

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sql.DB) *scheduleRepository {
	return &scheduleRepository{db: sqlx.NewDb(db, "postgres")}
}

// scheduleRow mirrors the schedule table; start/end are scanned as strings
// and converted to time-of-day values.
type scheduleRow struct {
	ID              int       `db:"id"`
	ModuleID        int       `db:"module_id"`
	Classroom       string    `db:"classroom"`
	Date            time.Time `db:"date"`
	StartTime       string    `db:"start_time"`
	EndTime         string    `db:"end_time"`
	Status          string    `db:"status"`
	CalendarEventID string    `db:"calendar_event_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row scheduleRow) toSchedule() (schedule.Schedule, error) {
	start, err := time.Parse(dbTimeFormat, row.StartTime)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "parsing start time")
	}
	end, err := time.Parse(dbTimeFormat, row.EndTime)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "parsing end time")
	}
	return schedule.Schedule{
		ID:              row.ID,
		ModuleID:        row.ModuleID,
		Classroom:       row.Classroom,
		Date:            row.Date,
		StartTime:       start,
		EndTime:         end,
		Status:          schedule.Status(row.Status),
		CalendarEventID: row.CalendarEventID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func toSchedules(rows []scheduleRow) ([]schedule.Schedule, error) {
	scheds := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		sched, err := row.toSchedule()
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, nil
}

func (repo *scheduleRepository) CreateModule(ctx context.Context, mod schedule.Module) (schedule.Module, error) {
	query := `
		INSERT INTO module (code, name, lecturer_id, credits, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		mod.Code, mod.Name, mod.LecturerID, mod.Credits, mod.Description, mod.CreatedAt,
	).Scan(&mod.ID)
	if err != nil {
		return schedule.Module{}, errors.Wrap(err, "creating module")
	}
	return mod, nil
}

func (repo *scheduleRepository) GetModule(ctx context.Context, id int) (schedule.Module, error) {
	var mod schedule.Module
	err := repo.db.GetContext(ctx, &mod, `SELECT * FROM module WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return schedule.Module{}, schedule.ErrModuleNotFound
	}
	if err != nil {
		return schedule.Module{}, errors.Wrap(err, "getting module")
	}
	return mod, nil
}

func (repo *scheduleRepository) QueryAllModules(ctx context.Context) ([]schedule.Module, error) {
	mods := make([]schedule.Module, 0)
	if err := repo.db.SelectContext(ctx, &mods, `SELECT * FROM module ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return mods, nil
}

func (repo *scheduleRepository) QueryModulesByLecturer(ctx context.Context, lecturerID int) ([]schedule.Module, error) {
	mods := make([]schedule.Module, 0)
	err := repo.db.SelectContext(ctx, &mods, `SELECT * FROM module WHERE lecturer_id = $1 ORDER BY code`, lecturerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules by lecturer")
	}
	return mods, nil
}

func (repo *scheduleRepository) QueryModulesByStudent(ctx context.Context, studentID int) ([]schedule.Module, error) {
	mods := make([]schedule.Module, 0)
	query := `
		SELECT m.* FROM module m
		INNER JOIN student_module sm ON sm.module_id = m.id
		WHERE sm.student_id = $1
		ORDER BY m.code`
	if err := repo.db.SelectContext(ctx, &mods, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying modules by student")
	}
	return mods, nil
}

func (repo *scheduleRepository) EnrollStudent(ctx context.Context, studentID, moduleID int) error {
	var count int
	err := repo.db.GetContext(
		ctx, &count,
		`SELECT count(*) FROM student_module WHERE student_id = $1 AND module_id = $2`,
		studentID, moduleID,
	)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if count > 0 { // already enrolled
		return nil
	}
	_, err = repo.db.ExecContext(
		ctx,
		`INSERT INTO student_module (student_id, module_id, enrolled_at) VALUES ($1, $2, $3)`,
		studentID, moduleID, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *scheduleRepository) QueryEnrolledStudents(ctx context.Context, moduleID int) ([]user.User, error) {
	users := make([]user.User, 0)
	query := `
		SELECT u.* FROM "user" u
		INNER JOIN student_module sm ON sm.student_id = u.id
		WHERE sm.module_id = $1
		ORDER BY sm.id`
	if err := repo.db.SelectContext(ctx, &users, query, moduleID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return users, nil
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	query := `
		INSERT INTO schedule (module_id, classroom, date, start_time, end_time, status, calendar_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		sched.ModuleID, sched.Classroom, sched.Date,
		sched.StartTime.Format(dbTimeFormat), sched.EndTime.Format(dbTimeFormat),
		sched.Status, sched.CalendarEventID, sched.CreatedAt, sched.UpdatedAt,
	).Scan(&sched.ID)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "creating schedule")
	}
	return sched, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id int) (schedule.Schedule, error) {
	var row scheduleRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM schedule WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting schedule")
	}
	return row.toSchedule()
}

func (repo *scheduleRepository) SaveSchedule(ctx context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	query := `
		UPDATE schedule
		SET classroom = $1, date = $2, start_time = $3, end_time = $4,
		    status = $5, calendar_event_id = $6, updated_at = $7
		WHERE id = $8`
	res, err := repo.db.ExecContext(
		ctx, query,
		sched.Classroom, sched.Date,
		sched.StartTime.Format(dbTimeFormat), sched.EndTime.Format(dbTimeFormat),
		sched.Status, sched.CalendarEventID, sched.UpdatedAt, sched.ID,
	)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "saving schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return sched, nil
}

func (repo *scheduleRepository) QueryAllSchedules(ctx context.Context) ([]schedule.Schedule, error) {
	rows := make([]scheduleRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM schedule ORDER BY date, start_time`); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	return toSchedules(rows)
}

func (repo *scheduleRepository) QuerySchedulesByModules(ctx context.Context, moduleIDs ...int) ([]schedule.Schedule, error) {
	if len(moduleIDs) == 0 {
		return []schedule.Schedule{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM schedule WHERE module_id IN (?) ORDER BY date, start_time`, moduleIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building schedules query")
	}
	rows := make([]scheduleRow, 0)
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules by modules")
	}
	return toSchedules(rows)
}

// AppendNotifications inserts all rows in a single transaction so the audit
// trail of one fan-out commits atomically.
func (repo *scheduleRepository) AppendNotifications(ctx context.Context, notifs []schedule.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	query := `
		INSERT INTO notification (schedule_id, user_id, channel, status, message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, notif := range notifs {
		_, err = tx.ExecContext(
			ctx, query,
			notif.ScheduleID, notif.UserID, notif.Channel, notif.Status,
			notif.Message, notif.SentAt, notif.CreatedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "inserting notification")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing notifications")
	}
	return nil
}

func (repo *scheduleRepository) QueryNotificationsBySchedule(ctx context.Context, scheduleID int) ([]schedule.Notification, error) {
	notifs := make([]schedule.Notification, 0)
	err := repo.db.SelectContext(
		ctx, &notifs,
		`SELECT * FROM notification WHERE schedule_id = $1 ORDER BY id`, scheduleID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}
