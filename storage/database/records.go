package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/masomo-lms/visibility/core/visibility"
)

// Rows of the LMS tables the visibility queries read.
type (
	Enrollment struct {
		ID              int64  `db:"id"`
		UserID          int64  `db:"user_id"`
		CourseID        int64  `db:"course_id"`
		CourseSectionID int64  `db:"course_section_id"`
		Type            string `db:"type"`
		WorkflowState   string `db:"workflow_state"`
	}

	// LearningObject is a row of quizzes or discussion_topics.
	LearningObject struct {
		ID                     int64     `db:"id"`
		ContextID              int64     `db:"context_id"`
		ContextType            string    `db:"context_type"`
		Title                  string    `db:"title"`
		WorkflowState          string    `db:"workflow_state"`
		OnlyVisibleToOverrides null.Bool `db:"only_visible_to_overrides"`
	}

	ContextModule struct {
		ID            int64  `db:"id"`
		ContextID     int64  `db:"context_id"`
		Name          string `db:"name"`
		WorkflowState string `db:"workflow_state"`
	}

	ContentTag struct {
		ID              int64      `db:"id"`
		ContentID       int64      `db:"content_id"`
		ContentType     string     `db:"content_type"`
		ContextModuleID null.Int64 `db:"context_module_id"`
		TagType         string     `db:"tag_type"`
		WorkflowState   string     `db:"workflow_state"`
	}

	AssignmentOverride struct {
		ID                int64       `db:"id"`
		QuizID            null.Int64  `db:"quiz_id"`
		DiscussionTopicID null.Int64  `db:"discussion_topic_id"`
		ContextModuleID   null.Int64  `db:"context_module_id"`
		SetType           null.String `db:"set_type"`
		SetID             null.Int64  `db:"set_id"`
		WorkflowState     string      `db:"workflow_state"`
		UnassignItem      bool        `db:"unassign_item"`
	}

	AssignmentOverrideStudent struct {
		ID                   int64  `db:"id"`
		AssignmentOverrideID int64  `db:"assignment_override_id"`
		UserID               int64  `db:"user_id"`
		WorkflowState        string `db:"workflow_state"`
	}
)

// VisibilityRow is a row of a visibility query. Only the id column of the
// queried kind is set.
type VisibilityRow struct {
	QuizID            null.Int64 `db:"quiz_id" boil:"quiz_id"`
	DiscussionTopicID null.Int64 `db:"discussion_topic_id" boil:"discussion_topic_id"`
	UserID            int64      `db:"user_id" boil:"user_id"`
	CourseID          int64      `db:"course_id" boil:"course_id"`
}

// Visibilities converts rows of a kind's query.
func Visibilities(kind visibility.Kind, rows []VisibilityRow) ([]visibility.Visibility, error) {
	res := make([]visibility.Visibility, 0, len(rows))
	for _, row := range rows {
		var id null.Int64
		switch kind.Table {
		case visibility.Quiz.Table:
			id = row.QuizID
		case visibility.DiscussionTopic.Table:
			id = row.DiscussionTopicID
		}
		if !id.Valid {
			return nil, errors.Errorf("%s visibility row without %s", kind.Table, kind.IDColumn)
		}
		res = append(res, visibility.Visibility{CourseID: row.CourseID, UserID: row.UserID, ObjectID: id.Int64})
	}
	return res, nil
}

// ObjectID returns the override's target of the given kind.
func (ao AssignmentOverride) ObjectID(kind visibility.Kind) null.Int64 {
	switch kind.Table {
	case visibility.Quiz.Table:
		return ao.QuizID
	case visibility.DiscussionTopic.Table:
		return ao.DiscussionTopicID
	}
	return null.Int64{}
}

// Fixture is a bundle of rows, loaded as-is into a store.
type Fixture struct {
	Enrollments                []Enrollment
	Quizzes                    []LearningObject
	DiscussionTopics           []LearningObject
	ContextModules             []ContextModule
	ContentTags                []ContentTag
	AssignmentOverrides        []AssignmentOverride
	AssignmentOverrideStudents []AssignmentOverrideStudent
}

// Objects returns the rows of the kind's table.
func (fx *Fixture) Objects(kind visibility.Kind) []LearningObject {
	switch kind.Table {
	case visibility.Quiz.Table:
		return fx.Quizzes
	case visibility.DiscussionTopic.Table:
		return fx.DiscussionTopics
	}
	return nil
}

const (
	insertEnrollment = `INSERT INTO enrollments (id, user_id, course_id, course_section_id, type, workflow_state)
		VALUES (:id, :user_id, :course_id, :course_section_id, :type, :workflow_state)`
	insertObject = `INSERT INTO %s (id, context_id, context_type, title, workflow_state, only_visible_to_overrides)
		VALUES (:id, :context_id, :context_type, :title, :workflow_state, :only_visible_to_overrides)`
	insertContextModule = `INSERT INTO context_modules (id, context_id, name, workflow_state)
		VALUES (:id, :context_id, :name, :workflow_state)`
	insertContentTag = `INSERT INTO content_tags (id, content_id, content_type, context_module_id, tag_type, workflow_state)
		VALUES (:id, :content_id, :content_type, :context_module_id, :tag_type, :workflow_state)`
	insertAssignmentOverride = `INSERT INTO assignment_overrides
		(id, quiz_id, discussion_topic_id, context_module_id, set_type, set_id, workflow_state, unassign_item)
		VALUES (:id, :quiz_id, :discussion_topic_id, :context_module_id, :set_type, :set_id, :workflow_state, :unassign_item)`
	insertAssignmentOverrideStudent = `INSERT INTO assignment_override_students (id, assignment_override_id, user_id, workflow_state)
		VALUES (:id, :assignment_override_id, :user_id, :workflow_state)`
)

// Seed inserts every row of fx in a single transaction.
func Seed(ctx context.Context, db *sqlx.DB, fx Fixture) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning seed transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// one statement per row: multi-row named inserts are not portable across engines
	insert := func(table, query string, row interface{}) error {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return errors.Wrapf(err, "inserting into %s", table)
		}
		return nil
	}

	for _, row := range fx.Enrollments {
		if err = insert("enrollments", insertEnrollment, row); err != nil {
			return err
		}
	}
	for _, kind := range []visibility.Kind{visibility.Quiz, visibility.DiscussionTopic} {
		query := fmt.Sprintf(insertObject, kind.Table)
		for _, row := range fx.Objects(kind) {
			if err = insert(kind.Table, query, row); err != nil {
				return err
			}
		}
	}
	for _, row := range fx.ContextModules {
		if err = insert("context_modules", insertContextModule, row); err != nil {
			return err
		}
	}
	for _, row := range fx.ContentTags {
		if err = insert("content_tags", insertContentTag, row); err != nil {
			return err
		}
	}
	for _, row := range fx.AssignmentOverrides {
		if err = insert("assignment_overrides", insertAssignmentOverride, row); err != nil {
			return err
		}
	}
	for _, row := range fx.AssignmentOverrideStudents {
		if err = insert("assignment_override_students", insertAssignmentOverrideStudent, row); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing seed transaction")
	}
	return nil
}
