package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database"
)

// Scenario ids.
const (
	Course1 int64 = 1
	Course2 int64 = 2

	Section10 int64 = 10
	Section20 int64 = 20
	Section30 int64 = 30

	// active students; 101 and 102 in section 10, 103 in section 20.
	Student101 int64 = 101
	Student102 int64 = 102
	Student103 int64 = 103
	Student201 int64 = 201 // course 2

	Inactive104 int64 = 104
	Teacher105  int64 = 105
)

const quizType = "Quizzes::Quiz"

// Scenario is a two-course LMS exercising every override category.
//
// Quizzes of course 1:
//
//	1  no module, visible to everyone
//	2  only to overrides, section 10
//	3  only to overrides, adhoc 103
//	4  in module 1, whose section 20 override hides it from everyone
//	5  in modules 1 and 2; module 2 has no overrides
//	6  visible to everyone but unassigned from section 10
//	7  only to overrides, course override
//	8  deleted
//	9  unpublished, section 10
//	10 only to overrides, section 20 minus adhoc unassignment of 103
//	12 only to overrides, deleted adhoc student and deleted adhoc override
//	13 in deleted module 3
//	14 only to overrides, in module 4 with an adhoc override for 102
//	15 only to overrides, course override after section 10 unassignment
//
// Quiz 11 belongs to course 2.
//
// Discussion topics of course 1: 1 plain, 2 section 20, 4 plain (quiz 4 shares
// its id and module), 7 only to overrides without any topic override.
func Scenario() database.Fixture {
	inactive := Student(4, Inactive104, Course1, Section20)
	inactive.WorkflowState = "inactive"
	teacher := Student(5, Teacher105, Course1, Section20)
	teacher.Type = "TeacherEnrollment"
	viewer := Student(2, Student102, Course1, Section10)
	viewer.Type = "StudentViewEnrollment"

	deletedQuiz := Object(8, Course1, Bool(false))
	deletedQuiz.WorkflowState = "deleted"
	unpublishedQuiz := Object(9, Course1, Bool(true))
	unpublishedQuiz.WorkflowState = "unpublished"

	deletedModule := Module(3, Course1)
	deletedModule.WorkflowState = "deleted"

	forQuiz := func(ao database.AssignmentOverride, quizID int64) database.AssignmentOverride {
		ao.QuizID.SetValid(quizID)
		return ao
	}
	forTopic := func(ao database.AssignmentOverride, topicID int64) database.AssignmentOverride {
		ao.DiscussionTopicID.SetValid(topicID)
		return ao
	}
	forModule := func(ao database.AssignmentOverride, moduleID int64) database.AssignmentOverride {
		ao.ContextModuleID.SetValid(moduleID)
		return ao
	}
	unassign := func(ao database.AssignmentOverride) database.AssignmentOverride {
		ao.UnassignItem = true
		return ao
	}
	deleted := func(ao database.AssignmentOverride) database.AssignmentOverride {
		ao.WorkflowState = "deleted"
		return ao
	}
	deletedStudent := OverrideStudent(3, 9, Student101)
	deletedStudent.WorkflowState = "deleted"

	return database.Fixture{
		Enrollments: []database.Enrollment{
			Student(1, Student101, Course1, Section10),
			viewer,
			Student(3, Student103, Course1, Section20),
			inactive,
			teacher,
			Student(6, Student201, Course2, Section30),
		},
		Quizzes: []database.LearningObject{
			Object(1, Course1, nil),
			Object(2, Course1, Bool(true)),
			Object(3, Course1, Bool(true)),
			Object(4, Course1, Bool(false)),
			Object(5, Course1, Bool(false)),
			Object(6, Course1, Bool(false)),
			Object(7, Course1, Bool(true)),
			deletedQuiz,
			unpublishedQuiz,
			Object(10, Course1, Bool(true)),
			Object(11, Course2, Bool(false)),
			Object(12, Course1, Bool(true)),
			Object(13, Course1, Bool(false)),
			Object(14, Course1, Bool(true)),
			Object(15, Course1, Bool(true)),
		},
		DiscussionTopics: []database.LearningObject{
			Object(1, Course1, nil),
			Object(2, Course1, Bool(true)),
			Object(4, Course1, Bool(false)),
			Object(7, Course1, Bool(true)),
		},
		ContextModules: []database.ContextModule{
			Module(1, Course1),
			Module(2, Course1),
			deletedModule,
			Module(4, Course1),
		},
		ContentTags: []database.ContentTag{
			ModuleItem(1, 4, quizType, 1),
			ModuleItem(2, 5, quizType, 1),
			ModuleItem(3, 5, quizType, 2),
			ModuleItem(4, 13, quizType, 3),
			ModuleItem(5, 14, quizType, 4),
		},
		AssignmentOverrides: []database.AssignmentOverride{
			forQuiz(Override(1, "CourseSection", Section10), 2),
			forQuiz(Override(2, "ADHOC", 0), 3),
			forModule(Override(3, "CourseSection", Section20), 1),
			unassign(forQuiz(Override(4, "CourseSection", Section10), 6)),
			forQuiz(Override(5, "Course", Course1), 7),
			forQuiz(Override(6, "CourseSection", Section10), 9),
			forQuiz(Override(7, "CourseSection", Section20), 10),
			unassign(forQuiz(Override(8, "ADHOC", 0), 10)),
			forQuiz(Override(9, "ADHOC", 0), 12),
			deleted(forQuiz(Override(10, "ADHOC", 0), 12)),
			forModule(Override(11, "CourseSection", Section10), 3),
			forModule(Override(12, "ADHOC", 0), 4),
			forQuiz(Override(13, "Course", Course1), 15),
			unassign(forQuiz(Override(14, "CourseSection", Section10), 15)),
			forTopic(Override(15, "CourseSection", Section20), 2),
		},
		AssignmentOverrideStudents: []database.AssignmentOverrideStudent{
			OverrideStudent(1, 2, Student103),
			OverrideStudent(2, 8, Student103),
			deletedStudent,
			OverrideStudent(4, 10, Student102),
			OverrideStudent(5, 12, Student102),
		},
	}
}

// Visible lists the visibilities of object in course for users, unsorted.
func Visible(course, object int64, users ...int64) []visibility.Visibility {
	res := make([]visibility.Visibility, 0, len(users))
	for _, u := range users {
		res = append(res, visibility.Visibility{CourseID: course, UserID: u, ObjectID: object})
	}
	return res
}

// Sorted concatenates groups in result order.
func Sorted(groups ...[]visibility.Visibility) []visibility.Visibility {
	res := make([]visibility.Visibility, 0)
	for _, g := range groups {
		res = append(res, g...)
	}
	visibility.SortVisibilities(res)
	return res
}

var everyStudent = []int64{Student101, Student102, Student103}

type scenarioCase struct {
	name   string
	kind   visibility.Kind
	scope  visibility.Scope
	filter visibility.Filter
	want   []visibility.Visibility
}

func scenarioCases() []scenarioCase {
	both := visibility.Filter{CourseIDs: visibility.IDs{Course1, Course2}}
	course1 := visibility.Filter{CourseIDs: visibility.ID(Course1)}

	return []scenarioCase{
		{
			name: "everyone", kind: visibility.Quiz, scope: visibility.ScopeEveryone, filter: both,
			want: Sorted(
				Visible(Course1, 1, everyStudent...),
				Visible(Course1, 5, everyStudent...),
				Visible(Course1, 6, everyStudent...),
				Visible(Course1, 13, everyStudent...),
				Visible(Course2, 11, Student201),
			),
		},
		{
			name: "sections", kind: visibility.Quiz, scope: visibility.ScopeSections, filter: course1,
			want: Sorted(
				Visible(Course1, 2, Student101, Student102),
				Visible(Course1, 4, Student103),
				Visible(Course1, 5, Student103),
				Visible(Course1, 10, Student103),
			),
		},
		{
			name: "assigned sections", kind: visibility.Quiz, scope: visibility.ScopeAssignedSections, filter: course1,
			want: Sorted(
				Visible(Course1, 2, Student101, Student102),
				Visible(Course1, 4, Student103),
				Visible(Course1, 5, Student103),
				Visible(Course1, 10, Student103),
			),
		},
		{
			name: "unassigned sections", kind: visibility.Quiz, scope: visibility.ScopeUnassignedSections, filter: course1,
			want: Sorted(
				Visible(Course1, 6, Student101, Student102),
				Visible(Course1, 15, Student101, Student102),
			),
		},
		{
			name: "adhoc", kind: visibility.Quiz, scope: visibility.ScopeAdhoc, filter: course1,
			want: Sorted(
				Visible(Course1, 3, Student103),
				Visible(Course1, 14, Student102),
			),
		},
		{
			name: "assigned adhoc", kind: visibility.Quiz, scope: visibility.ScopeAssignedAdhoc, filter: course1,
			want: Sorted(
				Visible(Course1, 3, Student103),
				Visible(Course1, 14, Student102),
			),
		},
		{
			name: "unassigned adhoc", kind: visibility.Quiz, scope: visibility.ScopeUnassignedAdhoc, filter: course1,
			want: Visible(Course1, 10, Student103),
		},
		{
			name: "course", kind: visibility.Quiz, scope: visibility.ScopeCourse, filter: course1,
			want: Sorted(
				Visible(Course1, 7, everyStudent...),
				Visible(Course1, 15, everyStudent...),
			),
		},
		{
			name: "full", kind: visibility.Quiz, scope: visibility.ScopeFull, filter: both,
			want: Sorted(
				Visible(Course1, 1, everyStudent...),
				Visible(Course1, 2, Student101, Student102),
				Visible(Course1, 3, Student103),
				Visible(Course1, 4, Student103),
				Visible(Course1, 5, everyStudent...),
				Visible(Course1, 6, Student103),
				Visible(Course1, 7, everyStudent...),
				Visible(Course1, 13, everyStudent...),
				Visible(Course1, 14, Student102),
				Visible(Course1, 15, everyStudent...),
				Visible(Course2, 11, Student201),
			),
		},
		{
			name: "others", kind: visibility.Quiz, scope: visibility.ScopeOthers, filter: course1,
			want: Sorted(
				Visible(Course1, 2, Student101, Student102),
				Visible(Course1, 3, Student103),
				Visible(Course1, 4, Student103),
				Visible(Course1, 5, Student103),
				Visible(Course1, 7, everyStudent...),
				Visible(Course1, 14, Student102),
				Visible(Course1, 15, everyStudent...),
			),
		},
		{
			name: "full of course 2", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{CourseIDs: visibility.ID(Course2)},
			want:   Visible(Course2, 11, Student201),
		},
		{
			name: "full of one student", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{UserIDs: visibility.ID(Student103)},
			want: Sorted(
				Visible(Course1, 1, Student103),
				Visible(Course1, 3, Student103),
				Visible(Course1, 4, Student103),
				Visible(Course1, 5, Student103),
				Visible(Course1, 6, Student103),
				Visible(Course1, 7, Student103),
				Visible(Course1, 13, Student103),
				Visible(Course1, 15, Student103),
			),
		},
		{
			name: "full of some quizzes", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{ObjectIDs: visibility.IDs{6, 10}},
			want:   Visible(Course1, 6, Student103),
		},
		{
			name: "full of course user and quiz", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{
				CourseIDs: visibility.ID(Course1),
				UserIDs:   visibility.ID(Student102),
				ObjectIDs: visibility.ID(14),
			},
			want: Visible(Course1, 14, Student102),
		},
		{
			name: "non-students see nothing", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{UserIDs: visibility.IDs{Inactive104, Teacher105}},
			want:   []visibility.Visibility{},
		},
		{
			name: "hidden quizzes", kind: visibility.Quiz, scope: visibility.ScopeFull,
			filter: visibility.Filter{ObjectIDs: visibility.IDs{8, 9, 12}},
			want:   []visibility.Visibility{},
		},
		{
			name: "topics full", kind: visibility.DiscussionTopic, scope: visibility.ScopeFull, filter: course1,
			want: Sorted(
				Visible(Course1, 1, everyStudent...),
				Visible(Course1, 2, Student103),
				Visible(Course1, 4, everyStudent...),
			),
		},
		{
			name: "topics course", kind: visibility.DiscussionTopic, scope: visibility.ScopeCourse, filter: course1,
			want: []visibility.Visibility{},
		},
	}
}

// RunScenario checks repo against the expected visibilities of Scenario,
// which must already be loaded into the store behind repo.
func RunScenario(t *testing.T, repo visibility.Repository) {
	t.Helper()
	for _, tc := range scenarioCases() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p, ok := visibility.PlanFor(tc.scope)
			require.True(t, ok)

			got, err := repo.FindVisibilities(context.Background(), visibility.Query{Kind: tc.kind, Plan: p, Filter: tc.filter})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
