package dummydb

import (
	"sync"

	"github.com/LAVINDI111/acnsms/core/schedule"
	"github.com/LAVINDI111/acnsms/core/user"
)

type (
	DB struct {
		user     *userTable
		module   *moduleTable
		schedule *scheduleTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	moduleTable struct {
		sync.RWMutex
		table       map[int]*schedule.Module
		enrollments map[int][]int // moduleID -> studentIDs, insertion order
	}

	scheduleTable struct {
		sync.RWMutex
		table         map[int]*schedule.Schedule
		notifications []schedule.Notification
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		module: &moduleTable{
			table:       make(map[int]*schedule.Module),
			enrollments: make(map[int][]int),
		},
		schedule: &scheduleTable{table: make(map[int]*schedule.Schedule)},
	}
	return db, nil
}
