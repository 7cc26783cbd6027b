package inmemdb

import (
	"sync"

	"github.com/masomo-lms/visibility/storage/database"
)

// DB keeps LMS rows in memory.
type DB struct {
	mutex sync.RWMutex
	fx    database.Fixture
}

func Open(fixtures ...database.Fixture) *DB {
	db := &DB{}
	for _, fx := range fixtures {
		db.Load(fx)
	}
	return db
}

// Load appends the rows of fx.
func (db *DB) Load(fx database.Fixture) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.fx.Enrollments = append(db.fx.Enrollments, fx.Enrollments...)
	db.fx.Quizzes = append(db.fx.Quizzes, fx.Quizzes...)
	db.fx.DiscussionTopics = append(db.fx.DiscussionTopics, fx.DiscussionTopics...)
	db.fx.ContextModules = append(db.fx.ContextModules, fx.ContextModules...)
	db.fx.ContentTags = append(db.fx.ContentTags, fx.ContentTags...)
	db.fx.AssignmentOverrides = append(db.fx.AssignmentOverrides, fx.AssignmentOverrides...)
	db.fx.AssignmentOverrideStudents = append(db.fx.AssignmentOverrideStudents, fx.AssignmentOverrideStudents...)
}

func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.fx = database.Fixture{}
}
