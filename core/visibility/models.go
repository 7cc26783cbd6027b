package visibility

import (
	"fmt"
	"sort"
	"strings"

	"github.com/masomo-lms/visibility/core"
)

// Kind describes a learning object whose visibility is resolved per student.
type Kind struct {
	Name        string // human name used in messages
	Table       string
	IDColumn    string // result column and assignment_overrides foreign key
	ContentType string // content_tags.content_type of module items
}

var (
	Quiz = Kind{
		Name:        "Quizzes",
		Table:       "quizzes",
		IDColumn:    "quiz_id",
		ContentType: "Quizzes::Quiz",
	}

	DiscussionTopic = Kind{
		Name:        "UngradedDiscussions",
		Table:       "discussion_topics",
		IDColumn:    "discussion_topic_id",
		ContentType: "DiscussionTopic",
	}
)

// IDs is an optional id filter. A nil IDs places no restriction while
// a non-nil empty IDs matches nothing.
type IDs []int64

// ID wraps a single id.
func ID(id int64) IDs { return IDs{id} }

func (ids IDs) IsSet() bool { return ids != nil }

// Matches reports whether id passes the filter.
func (ids IDs) Matches(id int64) bool {
	if ids == nil {
		return true
	}
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// Filter is the limiting clause shared by every visibility query.
type Filter struct {
	CourseIDs IDs
	UserIDs   IDs
	ObjectIDs IDs
}

func (f Filter) IsEmpty() bool {
	return !f.CourseIDs.IsSet() && !f.UserIDs.IsSet() && !f.ObjectIDs.IsSet()
}

// matchesNothing reports whether one of the set filters is an empty list.
func (f Filter) matchesNothing() bool {
	for _, ids := range []IDs{f.CourseIDs, f.UserIDs, f.ObjectIDs} {
		if ids.IsSet() && len(ids) == 0 {
			return true
		}
	}
	return false
}

// Validate requires at least one of course, user or object ids, for performance reasons.
func (f Filter) Validate(kind Kind) error {
	if !f.IsEmpty() {
		return nil
	}
	msg := fmt.Sprintf(
		"%sVisibleToStudents must have a limiting where clause of at least one course_id, user_id, or %s (for performance reasons)",
		kind.Name, kind.IDColumn)
	return core.NewValidationError(
		core.NewArgumentError(msg),
		core.FieldError{Field: "course_id", Error: msg},
		core.FieldError{Field: "user_id", Error: msg},
		core.FieldError{Field: kind.IDColumn, Error: msg},
	)
}

// Visibility is a (course, user, object) tuple: user may see object in course.
type Visibility struct {
	CourseID int64
	UserID   int64
	ObjectID int64
}

func (v Visibility) less(o Visibility) bool {
	if v.CourseID != o.CourseID {
		return v.CourseID < o.CourseID
	}
	if v.UserID != o.UserID {
		return v.UserID < o.UserID
	}
	return v.ObjectID < o.ObjectID
}

// SortVisibilities orders by course, user then object.
func SortVisibilities(vs []Visibility) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].less(vs[j]) })
}

// Category is one override category, rendered as a single SELECT.
type Category string

const (
	CategoryEveryone           Category = "everyone"
	CategorySections           Category = "sections"
	CategoryUnassignedSections Category = "unassigned_sections"
	CategoryAdhoc              Category = "adhoc"
	CategoryUnassignedAdhoc    Category = "unassigned_adhoc"
	CategoryCourse             Category = "course"
)

var Categories = []Category{
	CategoryEveryone,
	CategorySections,
	CategoryUnassignedSections,
	CategoryAdhoc,
	CategoryUnassignedAdhoc,
	CategoryCourse,
}

// SetOp combines a category with the result accumulated so far.
type SetOp string

const (
	Union  SetOp = "UNION"
	Except SetOp = "EXCEPT"
)

type Step struct {
	Op       SetOp // ignored for the first step
	Category Category
}

// Plan is evaluated strictly left to right, as the engine does for UNION/EXCEPT chains.
type Plan []Step

func (p Plan) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 {
			b.WriteString(" " + string(s.Op) + " ")
		}
		b.WriteString(string(s.Category))
	}
	return b.String()
}

func plan(first Category, rest ...Step) Plan {
	return append(Plan{{Category: first}}, rest...)
}

// Scope names a plan exposed as an operation.
type Scope string

const (
	ScopeEveryone           Scope = "everyone"
	ScopeAssignedSections   Scope = "assigned_sections"
	ScopeSections           Scope = "sections"
	ScopeUnassignedSections Scope = "unassigned_sections"
	ScopeAssignedAdhoc      Scope = "assigned_adhoc"
	ScopeUnassignedAdhoc    Scope = "unassigned_adhoc"
	ScopeAdhoc              Scope = "adhoc"
	ScopeCourse             Scope = "course"
	ScopeFull               Scope = "full"
	ScopeOthers             Scope = "others"
)

var plans = map[Scope]Plan{
	ScopeEveryone:           plan(CategoryEveryone),
	ScopeAssignedSections:   plan(CategorySections, Step{Except, CategoryUnassignedSections}),
	ScopeSections:           plan(CategorySections),
	ScopeUnassignedSections: plan(CategoryUnassignedSections),
	ScopeAssignedAdhoc:      plan(CategoryAdhoc, Step{Except, CategoryUnassignedAdhoc}),
	ScopeUnassignedAdhoc:    plan(CategoryUnassignedAdhoc),
	ScopeAdhoc:              plan(CategoryAdhoc),
	ScopeCourse:             plan(CategoryCourse),
	ScopeFull: plan(CategoryEveryone,
		Step{Union, CategorySections},
		Step{Except, CategoryUnassignedSections},
		Step{Union, CategoryAdhoc},
		Step{Except, CategoryUnassignedAdhoc},
		Step{Union, CategoryCourse},
	),
	ScopeOthers: plan(CategorySections,
		Step{Except, CategoryUnassignedSections},
		Step{Union, CategoryAdhoc},
		Step{Except, CategoryUnassignedAdhoc},
		Step{Union, CategoryCourse},
	),
}

// Scopes lists the known scopes in a stable order.
func Scopes() []Scope {
	scopes := make([]Scope, 0, len(plans))
	for s := range plans {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
	return scopes
}

// PlanFor returns the plan of a scope.
func PlanFor(scope Scope) (Plan, bool) {
	p, ok := plans[scope]
	return p, ok
}

// Query is a plan bound to an object kind and a limiting filter.
type Query struct {
	Kind   Kind
	Plan   Plan
	Filter Filter
}
