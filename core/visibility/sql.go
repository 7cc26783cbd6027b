package visibility

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
)

// Storage table names read by the visibility queries.
const (
	TableEnrollments                = "enrollments"
	TableContentTags                = "content_tags"
	TableContextModules             = "context_modules"
	TableAssignmentOverrides        = "assignment_overrides"
	TableAssignmentOverrideStudents = "assignment_override_students"
)

// Named parameters.
const (
	paramCourseID    = "course_id"
	paramUserID      = "user_id"
	paramContentType = "content_type"
)

// Enrollment and object states.
var (
	StudentEnrollmentTypes   = []string{"StudentEnrollment", "StudentViewEnrollment"}
	InactiveEnrollmentStates = []string{"deleted", "rejected", "inactive"}
	HiddenObjectStates       = []string{"deleted", "unpublished"}
)

func quoteTable(name string) string {
	return strmangle.IdentQuote('"', '"', name)
}

func sqlList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return strings.Join(quoted, ", ")
}

func squish(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func selectSQL(kind Kind) string {
	return squish(
		"SELECT DISTINCT o.id AS", kind.IDColumn+",",
		"e.user_id AS user_id,",
		"e.course_id AS course_id",
		"FROM", quoteTable(kind.Table), "o",
	)
}

func enrollmentJoinSQL() string {
	return squish(
		"JOIN", quoteTable(TableEnrollments), "e",
		"ON e.course_id = o.context_id",
		"AND o.context_type = 'Course'",
		"AND e.type IN ("+sqlList(StudentEnrollmentTypes)+")",
		"AND e.workflow_state NOT IN ("+sqlList(InactiveEnrollmentStates)+")",
	)
}

// the content type is bound: "Quizzes::Quiz" would clash with named parameters.
func moduleItemsJoinSQL() string {
	return squish(
		"LEFT JOIN", quoteTable(TableContentTags), "t",
		"ON t.content_id = o.id",
		"AND t.content_type = :"+paramContentType,
		"AND t.tag_type = 'context_module'",
		"AND t.workflow_state <> 'deleted'",
		"LEFT JOIN", quoteTable(TableContextModules), "m",
		"ON m.id = t.context_module_id",
		"AND m.workflow_state <> 'deleted'",
	)
}

func overrideEveryoneJoinSQL() string {
	return squish(
		"LEFT JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON m.id = ao.context_module_id",
		"AND ao.workflow_state = 'active'",
	)
}

func overrideEveryoneFilterSQL(cond string) string {
	return squish(
		"WHERE o.workflow_state NOT IN ("+sqlList(HiddenObjectStates)+")",
		"AND o.only_visible_to_overrides IS NOT TRUE",
		"AND (m.id IS NULL OR ao.context_module_id IS NULL)",
		"AND", cond,
	)
}

func overrideSectionJoinSQL(idCol string) string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON e.course_section_id = ao.set_id",
		"AND ao.set_type = 'CourseSection'",
		"AND (ao."+idCol+" = o.id OR m.id = ao.context_module_id)",
		"AND ao.workflow_state = 'active'",
	)
}

func overrideUnassignSectionJoinSQL(idCol string) string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON e.course_section_id = ao.set_id",
		"AND ao.set_type = 'CourseSection'",
		"AND ao."+idCol+" = o.id",
		"AND ao.workflow_state = 'active'",
	)
}

func overrideAdhocJoinSQL(idCol string) string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON (ao."+idCol+" = o.id OR m.id = ao.context_module_id)",
		"AND ao.set_type = 'ADHOC'",
		"AND ao.workflow_state = 'active'",
	)
}

func overrideUnassignAdhocJoinSQL(idCol string) string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON ao."+idCol+" = o.id",
		"AND ao.set_type = 'ADHOC'",
		"AND ao.workflow_state = 'active'",
		overrideStudentJoinSQL(),
	)
}

func overrideStudentJoinSQL() string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrideStudents), "aos",
		"ON ao.id = aos.assignment_override_id",
		"AND aos.user_id = e.user_id",
		"AND aos.workflow_state <> 'deleted'",
	)
}

func overrideCourseJoinSQL(idCol string) string {
	return squish(
		"JOIN", quoteTable(TableAssignmentOverrides), "ao",
		"ON o.id = ao."+idCol,
		"AND ao.set_type = 'Course'",
		"AND ao.workflow_state = 'active'",
	)
}

// assignedFilterSQL keeps overrides that assign the object.
func assignedFilterSQL(cond string) string {
	return squish(
		"WHERE o.workflow_state NOT IN ("+sqlList(HiddenObjectStates)+")",
		"AND ao.unassign_item IS NOT TRUE",
		"AND", cond,
	)
}

// unassignedFilterSQL keeps overrides that take the object away.
func unassignedFilterSQL(cond string) string {
	return squish(
		"WHERE o.workflow_state NOT IN ("+sqlList(HiddenObjectStates)+")",
		"AND ao.unassign_item IS TRUE",
		"AND", cond,
	)
}

func courseFilterSQL(cond string) string {
	return squish(
		"WHERE o.workflow_state NOT IN ("+sqlList(HiddenObjectStates)+")",
		"AND", cond,
	)
}

// CategorySQL renders the SELECT of a single category, filtered by cond.
func CategorySQL(kind Kind, cat Category, cond string) (string, error) {
	idCol := kind.IDColumn
	switch cat {
	case CategoryEveryone:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join context modules */", moduleItemsJoinSQL(),
			"/* join assignment override */", overrideEveryoneJoinSQL(),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", overrideEveryoneFilterSQL(cond),
		), nil
	case CategorySections:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join context modules */", moduleItemsJoinSQL(),
			"/* join assignment overrides (assignment or related context module) for CourseSection */", overrideSectionJoinSQL(idCol),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", assignedFilterSQL(cond),
		), nil
	case CategoryUnassignedSections:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join assignment override for 'CourseSection' (no module check) */", overrideUnassignSectionJoinSQL(idCol),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", unassignedFilterSQL(cond),
		), nil
	case CategoryAdhoc:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join context modules */", moduleItemsJoinSQL(),
			"/* join assignment override for 'ADHOC' */", overrideAdhocJoinSQL(idCol),
			"/* join AssignmentOverrideStudent */", overrideStudentJoinSQL(),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", assignedFilterSQL(cond),
		), nil
	case CategoryUnassignedAdhoc:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join assignment overrides for 'ADHOC' (no module check) */", overrideUnassignAdhocJoinSQL(idCol),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", unassignedFilterSQL(cond),
		), nil
	case CategoryCourse:
		return squish(
			selectSQL(kind),
			"/* join active student enrollments */", enrollmentJoinSQL(),
			"/* join assignment override for 'Course' */", overrideCourseJoinSQL(idCol),
			"/* filtered to course_id, user_id, "+idCol+", and additional conditions */", courseFilterSQL(cond),
		), nil
	}
	return "", errors.Errorf("unknown visibility category %q", cat)
}

func idCondition(column, param string, ids IDs) string {
	if len(ids) == 1 {
		return fmt.Sprintf("%s = :%s", column, param)
	}
	return fmt.Sprintf("%s IN (:%s)", column, param)
}

func idParam(ids IDs) interface{} {
	if len(ids) == 1 {
		return ids[0]
	}
	return []int64(ids)
}

// FilterConditionSQL builds e.g. `o.id = :quiz_id AND e.user_id IN (:user_id)`.
func FilterConditionSQL(kind Kind, f Filter) (string, error) {
	if err := f.Validate(kind); err != nil {
		return "", err
	}
	conds := make([]string, 0, 3)
	if f.ObjectIDs.IsSet() {
		conds = append(conds, idCondition("o.id", kind.IDColumn, f.ObjectIDs))
	}
	if f.UserIDs.IsSet() {
		conds = append(conds, idCondition("e.user_id", paramUserID, f.UserIDs))
	}
	if f.CourseIDs.IsSet() {
		conds = append(conds, idCondition("e.course_id", paramCourseID, f.CourseIDs))
	}
	return strings.Join(conds, " AND "), nil
}

// QueryParams returns the named parameters referenced by the rendered query.
func QueryParams(kind Kind, f Filter) map[string]interface{} {
	params := map[string]interface{}{paramContentType: kind.ContentType}
	if f.CourseIDs.IsSet() {
		params[paramCourseID] = idParam(f.CourseIDs)
	}
	if f.UserIDs.IsSet() {
		params[paramUserID] = idParam(f.UserIDs)
	}
	if f.ObjectIDs.IsSet() {
		params[kind.IDColumn] = idParam(f.ObjectIDs)
	}
	return params
}

// Render turns q into a single statement with named parameters.
func Render(q Query) (string, map[string]interface{}, error) {
	if len(q.Plan) == 0 {
		return "", nil, errors.New("empty visibility plan")
	}
	cond, err := FilterConditionSQL(q.Kind, q.Filter)
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, 0, 2*len(q.Plan)+1)
	for i, step := range q.Plan {
		if i > 0 {
			if step.Op != Union && step.Op != Except {
				return "", nil, errors.Errorf("unknown set operation %q", step.Op)
			}
			parts = append(parts, string(step.Op))
		}
		sel, err := CategorySQL(q.Kind, step.Category, cond)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sel)
	}
	parts = append(parts, "ORDER BY course_id, user_id, "+q.Kind.IDColumn)
	return strings.Join(parts, " "), QueryParams(q.Kind, q.Filter), nil
}

// Compile renders q, binds its named parameters, expands id lists and rebinds
// the placeholders for bindType (sqlx.DOLLAR, sqlx.QUESTION...).
func Compile(q Query, bindType int) (string, []interface{}, error) {
	query, params, err := Render(q)
	if err != nil {
		return "", nil, err
	}
	query, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, errors.Wrap(err, "binding named parameters")
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding id lists")
	}
	return sqlx.Rebind(bindType, query), args, nil
}
