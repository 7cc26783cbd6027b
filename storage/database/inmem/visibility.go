package inmemdb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database"
)

// Override set types
const (
	setTypeSection = "CourseSection"
	setTypeAdhoc   = "ADHOC"
	setTypeCourse  = "Course"
)

type visibilityRepository struct {
	db *DB
}

var _ visibility.Repository = (*visibilityRepository)(nil) // interface compliance check

// NewVisibilityRepository evaluates visibility plans in-process, with the same
// set semantics the SQL repositories delegate to the database.
func NewVisibilityRepository(db *DB) *visibilityRepository {
	return &visibilityRepository{db: db}
}

type tupleSet map[visibility.Visibility]struct{}

func (s tupleSet) union(o tupleSet) {
	for v := range o {
		s[v] = struct{}{}
	}
}

func (s tupleSet) except(o tupleSet) {
	for v := range o {
		delete(s, v)
	}
}

func (s tupleSet) sorted() []visibility.Visibility {
	res := make([]visibility.Visibility, 0, len(s))
	for v := range s {
		res = append(res, v)
	}
	visibility.SortVisibilities(res)
	return res
}

func (repo *visibilityRepository) FindVisibilities(ctx context.Context, q visibility.Query) ([]visibility.Visibility, error) {
	if err := q.Filter.Validate(q.Kind); err != nil {
		return nil, err
	}
	if len(q.Plan) == 0 {
		return nil, errors.New("empty visibility plan")
	}

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var acc tupleSet
	for i, step := range q.Plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, err := repo.category(q.Kind, step.Category, q.Filter)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = set
			continue
		}
		switch step.Op {
		case visibility.Union:
			acc.union(set)
		case visibility.Except:
			acc.except(set)
		default:
			return nil, errors.Errorf("unknown set operation %q", step.Op)
		}
	}
	return acc.sorted(), nil
}

// category evaluates a single category SELECT. Callers hold the read lock.
func (repo *visibilityRepository) category(kind visibility.Kind, cat visibility.Category, f visibility.Filter) (tupleSet, error) {
	var match func(o database.LearningObject, e database.Enrollment) bool
	switch cat {
	case visibility.CategoryEveryone:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			return repo.visibleToEveryone(kind, o)
		}
	case visibility.CategorySections:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			return repo.assignedToSection(kind, o, e)
		}
	case visibility.CategoryUnassignedSections:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			for _, ao := range repo.activeOverrides(setTypeSection) {
				if matchesInt(ao.SetID, e.CourseSectionID) && matchesInt(ao.ObjectID(kind), o.ID) && ao.UnassignItem {
					return true
				}
			}
			return false
		}
	case visibility.CategoryAdhoc:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			return repo.assignedToStudent(kind, o, e)
		}
	case visibility.CategoryUnassignedAdhoc:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			for _, ao := range repo.activeOverrides(setTypeAdhoc) {
				if matchesInt(ao.ObjectID(kind), o.ID) && ao.UnassignItem && repo.overrideHasStudent(ao, e.UserID) {
					return true
				}
			}
			return false
		}
	case visibility.CategoryCourse:
		match = func(o database.LearningObject, e database.Enrollment) bool {
			for _, ao := range repo.activeOverrides(setTypeCourse) {
				if matchesInt(ao.ObjectID(kind), o.ID) {
					return true
				}
			}
			return false
		}
	default:
		return nil, errors.Errorf("unknown visibility category %q", cat)
	}

	set := make(tupleSet)
	for _, o := range repo.db.fx.Objects(kind) {
		if contains(visibility.HiddenObjectStates, o.WorkflowState) || !f.ObjectIDs.Matches(o.ID) {
			continue
		}
		for _, e := range repo.studentEnrollments(o) {
			if !f.UserIDs.Matches(e.UserID) || !f.CourseIDs.Matches(e.CourseID) {
				continue
			}
			if match(o, e) {
				set[visibility.Visibility{CourseID: e.CourseID, UserID: e.UserID, ObjectID: o.ID}] = struct{}{}
			}
		}
	}
	return set, nil
}

func (repo *visibilityRepository) studentEnrollments(o database.LearningObject) []database.Enrollment {
	if o.ContextType != "Course" {
		return nil
	}
	res := make([]database.Enrollment, 0)
	for _, e := range repo.db.fx.Enrollments {
		if e.CourseID == o.ContextID &&
			contains(visibility.StudentEnrollmentTypes, e.Type) &&
			!contains(visibility.InactiveEnrollmentStates, e.WorkflowState) {
			res = append(res, e)
		}
	}
	return res
}

// modules mirrors the LEFT JOINs on content tags and context modules:
// a nil entry stands for a row without a (live) module.
func (repo *visibilityRepository) modules(kind visibility.Kind, o database.LearningObject) []*database.ContextModule {
	mods := make([]*database.ContextModule, 0)
	for _, t := range repo.db.fx.ContentTags {
		if t.ContentID != o.ID || t.ContentType != kind.ContentType ||
			t.TagType != "context_module" || t.WorkflowState == "deleted" {
			continue
		}
		var mod *database.ContextModule
		for i := range repo.db.fx.ContextModules {
			m := &repo.db.fx.ContextModules[i]
			if matchesInt(t.ContextModuleID, m.ID) && m.WorkflowState != "deleted" {
				mod = m
				break
			}
		}
		mods = append(mods, mod)
	}
	if len(mods) == 0 {
		mods = append(mods, nil)
	}
	return mods
}

func (repo *visibilityRepository) activeOverrides(setType string) []database.AssignmentOverride {
	res := make([]database.AssignmentOverride, 0)
	for _, ao := range repo.db.fx.AssignmentOverrides {
		if ao.WorkflowState != "active" {
			continue
		}
		if setType == "" || (ao.SetType.Valid && ao.SetType.String == setType) {
			res = append(res, ao)
		}
	}
	return res
}

func (repo *visibilityRepository) moduleHasOverrides(m *database.ContextModule) bool {
	for _, ao := range repo.activeOverrides("") {
		if matchesInt(ao.ContextModuleID, m.ID) {
			return true
		}
	}
	return false
}

// targets tells whether ao applies to o directly or through module m.
func targets(kind visibility.Kind, ao database.AssignmentOverride, o database.LearningObject, m *database.ContextModule) bool {
	if matchesInt(ao.ObjectID(kind), o.ID) {
		return true
	}
	return m != nil && matchesInt(ao.ContextModuleID, m.ID)
}

func (repo *visibilityRepository) visibleToEveryone(kind visibility.Kind, o database.LearningObject) bool {
	if o.OnlyVisibleToOverrides.Valid && o.OnlyVisibleToOverrides.Bool {
		return false
	}
	for _, m := range repo.modules(kind, o) {
		if m == nil || !repo.moduleHasOverrides(m) {
			return true
		}
	}
	return false
}

func (repo *visibilityRepository) assignedToSection(kind visibility.Kind, o database.LearningObject, e database.Enrollment) bool {
	overrides := repo.activeOverrides(setTypeSection)
	for _, m := range repo.modules(kind, o) {
		for _, ao := range overrides {
			if matchesInt(ao.SetID, e.CourseSectionID) && targets(kind, ao, o, m) && !ao.UnassignItem {
				return true
			}
		}
	}
	return false
}

func (repo *visibilityRepository) assignedToStudent(kind visibility.Kind, o database.LearningObject, e database.Enrollment) bool {
	overrides := repo.activeOverrides(setTypeAdhoc)
	for _, m := range repo.modules(kind, o) {
		for _, ao := range overrides {
			if targets(kind, ao, o, m) && !ao.UnassignItem && repo.overrideHasStudent(ao, e.UserID) {
				return true
			}
		}
	}
	return false
}

func (repo *visibilityRepository) overrideHasStudent(ao database.AssignmentOverride, userID int64) bool {
	for _, aos := range repo.db.fx.AssignmentOverrideStudents {
		if aos.AssignmentOverrideID == ao.ID && aos.UserID == userID && aos.WorkflowState != "deleted" {
			return true
		}
	}
	return false
}

// matchesInt is SQL equality: NULL never matches.
func matchesInt(n null.Int64, v int64) bool {
	return n.Valid && n.Int64 == v
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
