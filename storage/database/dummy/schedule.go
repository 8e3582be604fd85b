package dummydb

import (
	"context"
	"sort"

	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
)

var (
	modulePKCount       int
	schedulePKCount     int
	notificationPKCount int
)

type scheduleRepository struct {
	users     *userTable
	modules   *moduleTable
	schedules *scheduleTable
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{users: db.user, modules: db.module, schedules: db.schedule}
}

func (repo *scheduleRepository) queryModules() []schedule.Module {
	mods := make([]schedule.Module, 0, len(repo.modules.table))
	for _, mod := range repo.modules.table {
		mods = append(mods, *mod)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods
}

func (repo *scheduleRepository) querySchedules() []schedule.Schedule {
	scheds := make([]schedule.Schedule, 0, len(repo.schedules.table))
	for _, sched := range repo.schedules.table {
		scheds = append(scheds, *sched)
	}
	sort.Slice(scheds, func(i, j int) bool { return scheds[i].ID < scheds[j].ID })
	return scheds
}

func (repo *scheduleRepository) CreateModule(_ context.Context, mod schedule.Module) (schedule.Module, error) {
	repo.modules.Lock()
	defer repo.modules.Unlock()

	modulePKCount++
	mod.ID = modulePKCount
	repo.modules.table[mod.ID] = &mod
	return mod, nil
}

func (repo *scheduleRepository) GetModule(_ context.Context, id int) (schedule.Module, error) {
	repo.modules.RLock()
	defer repo.modules.RUnlock()

	if mod, ok := repo.modules.table[id]; ok {
		return *mod, nil
	}
	return schedule.Module{}, schedule.ErrModuleNotFound
}

func (repo *scheduleRepository) QueryAllModules(_ context.Context) ([]schedule.Module, error) {
	repo.modules.RLock()
	defer repo.modules.RUnlock()
	return repo.queryModules(), nil
}

func (repo *scheduleRepository) QueryModulesByLecturer(_ context.Context, lecturerID int) ([]schedule.Module, error) {
	repo.modules.RLock()
	defer repo.modules.RUnlock()

	mods := make([]schedule.Module, 0)
	for _, mod := range repo.queryModules() {
		if mod.LecturerID == lecturerID {
			mods = append(mods, mod)
		}
	}
	return mods, nil
}

func (repo *scheduleRepository) QueryModulesByStudent(_ context.Context, studentID int) ([]schedule.Module, error) {
	repo.modules.RLock()
	defer repo.modules.RUnlock()

	mods := make([]schedule.Module, 0)
	for _, mod := range repo.queryModules() {
		for _, sid := range repo.modules.enrollments[mod.ID] {
			if sid == studentID {
				mods = append(mods, mod)
				break
			}
		}
	}
	return mods, nil
}

func (repo *scheduleRepository) EnrollStudent(_ context.Context, studentID, moduleID int) error {
	repo.modules.Lock()
	defer repo.modules.Unlock()

	for _, sid := range repo.modules.enrollments[moduleID] {
		if sid == studentID { // already enrolled
			return nil
		}
	}
	repo.modules.enrollments[moduleID] = append(repo.modules.enrollments[moduleID], studentID)
	return nil
}

func (repo *scheduleRepository) QueryEnrolledStudents(_ context.Context, moduleID int) ([]user.User, error) {
	repo.modules.RLock()
	studentIDs := append([]int(nil), repo.modules.enrollments[moduleID]...)
	repo.modules.RUnlock()

	repo.users.RLock()
	defer repo.users.RUnlock()

	students := make([]user.User, 0, len(studentIDs))
	for _, sid := range studentIDs {
		if usr, ok := repo.users.table[sid]; ok {
			students = append(students, *usr)
		}
	}
	return students, nil
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	repo.schedules.Lock()
	defer repo.schedules.Unlock()

	schedulePKCount++
	sched.ID = schedulePKCount
	repo.schedules.table[sched.ID] = &sched
	return sched, nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, id int) (schedule.Schedule, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()

	if sched, ok := repo.schedules.table[id]; ok {
		return *sched, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) SaveSchedule(_ context.Context, sched schedule.Schedule) (schedule.Schedule, error) {
	repo.schedules.Lock()
	defer repo.schedules.Unlock()

	if _, ok := repo.schedules.table[sched.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	repo.schedules.table[sched.ID] = &sched
	return sched, nil
}

func (repo *scheduleRepository) QueryAllSchedules(_ context.Context) ([]schedule.Schedule, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()
	return repo.querySchedules(), nil
}

func (repo *scheduleRepository) QuerySchedulesByModules(_ context.Context, moduleIDs ...int) ([]schedule.Schedule, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()

	wanted := make(map[int]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		wanted[id] = true
	}
	scheds := make([]schedule.Schedule, 0)
	for _, sched := range repo.querySchedules() {
		if wanted[sched.ModuleID] {
			scheds = append(scheds, sched)
		}
	}
	return scheds, nil
}

func (repo *scheduleRepository) AppendNotifications(_ context.Context, notifs []schedule.Notification) error {
	repo.schedules.Lock()
	defer repo.schedules.Unlock()

	for _, notif := range notifs {
		notificationPKCount++
		notif.ID = notificationPKCount
		repo.schedules.notifications = append(repo.schedules.notifications, notif)
	}
	return nil
}

func (repo *scheduleRepository) QueryNotificationsBySchedule(_ context.Context, scheduleID int) ([]schedule.Notification, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()

	notifs := make([]schedule.Notification, 0)
	for _, notif := range repo.schedules.notifications {
		if notif.ScheduleID == scheduleID {
			notifs = append(notifs, notif)
		}
	}
	return notifs, nil
}
