package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/storage/database"
)

// PrepareDB opens a migrated throw-away sqlite database, closed when t ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig(filepath.Join(t.TempDir(), "visibility.db"))
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Ping(db, 3); err != nil {
		t.Fatalf("database.Ping() failed: %v", err)
	}
	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// SeedDB loads fx into db.
func SeedDB(t *testing.T, db *sqlx.DB, fx database.Fixture) {
	t.Helper()
	if err := database.Seed(context.Background(), db, fx); err != nil {
		t.Fatalf("database.Seed() failed: %v", err)
	}
}

// Row builders with the states a live LMS row has.

func Student(id, userID, courseID, sectionID int64) database.Enrollment {
	return database.Enrollment{
		ID:              id,
		UserID:          userID,
		CourseID:        courseID,
		CourseSectionID: sectionID,
		Type:            "StudentEnrollment",
		WorkflowState:   "active",
	}
}

// Object builds a published quiz or discussion topic of a course.
// ovto is only_visible_to_overrides; nil stores NULL.
func Object(id, courseID int64, ovto *bool) database.LearningObject {
	return database.LearningObject{
		ID:                     id,
		ContextID:              courseID,
		ContextType:            "Course",
		WorkflowState:          "active",
		OnlyVisibleToOverrides: null.BoolFromPtr(ovto),
	}
}

func Module(id, courseID int64) database.ContextModule {
	return database.ContextModule{ID: id, ContextID: courseID, WorkflowState: "active"}
}

func ModuleItem(id, contentID int64, contentType string, moduleID int64) database.ContentTag {
	return database.ContentTag{
		ID:              id,
		ContentID:       contentID,
		ContentType:     contentType,
		ContextModuleID: null.Int64From(moduleID),
		TagType:         "context_module",
		WorkflowState:   "active",
	}
}

func Override(id int64, setType string, setID int64) database.AssignmentOverride {
	return database.AssignmentOverride{
		ID:            id,
		SetType:       null.StringFrom(setType),
		SetID:         null.NewInt64(setID, setID != 0),
		WorkflowState: "active",
	}
}

func OverrideStudent(id, overrideID, userID int64) database.AssignmentOverrideStudent {
	return database.AssignmentOverrideStudent{
		ID:                   id,
		AssignmentOverrideID: overrideID,
		UserID:               userID,
		WorkflowState:        "active",
	}
}

func Bool(b bool) *bool { return &b }
