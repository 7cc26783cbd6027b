package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database"
	"github.com/masomo-lms/visibility/tests"
)

func TestVisibilityRepository_FindVisibilities(t *testing.T) {
	testutil.RunScenario(t, NewVisibilityRepository(Open(testutil.Scenario())))
}

func TestVisibilityRepository_FindVisibilities_errors(t *testing.T) {
	repo := NewVisibilityRepository(Open(testutil.Scenario()))
	filter := visibility.Filter{CourseIDs: visibility.ID(testutil.Course1)}
	full, _ := visibility.PlanFor(visibility.ScopeFull)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		q    visibility.Query
	}{
		{name: "no filter", ctx: context.Background(), q: visibility.Query{Kind: visibility.Quiz, Plan: full}},
		{name: "empty plan", ctx: context.Background(), q: visibility.Query{Kind: visibility.Quiz, Filter: filter}},
		{
			name: "unknown category", ctx: context.Background(),
			q: visibility.Query{Kind: visibility.Quiz, Plan: visibility.Plan{{Category: "lol"}}, Filter: filter},
		},
		{
			name: "unknown operation", ctx: context.Background(),
			q: visibility.Query{
				Kind:   visibility.Quiz,
				Plan:   visibility.Plan{{Category: visibility.CategoryEveryone}, {Op: "INTERSECT", Category: visibility.CategoryCourse}},
				Filter: filter,
			},
		},
		{name: "canceled", ctx: canceled, q: visibility.Query{Kind: visibility.Quiz, Plan: full, Filter: filter}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.FindVisibilities(tt.ctx, tt.q); err == nil {
				t.Errorf("FindVisibilities() error = nil, want an error")
			}
		})
	}

	_, err := repo.FindVisibilities(context.Background(), visibility.Query{Kind: visibility.Quiz, Plan: full})
	assert.True(t, core.IsValidationError(err))
}

func TestDB_LoadReset(t *testing.T) {
	db := Open()
	repo := NewVisibilityRepository(db)
	p, _ := visibility.PlanFor(visibility.ScopeEveryone)
	q := visibility.Query{Kind: visibility.Quiz, Plan: p, Filter: visibility.Filter{UserIDs: visibility.ID(7)}}

	got, err := repo.FindVisibilities(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, got)

	db.Load(database.Fixture{
		Enrollments: []database.Enrollment{testutil.Student(1, 7, 3, 30)},
		Quizzes:     []database.LearningObject{testutil.Object(9, 3, nil)},
	})
	got, err = repo.FindVisibilities(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, testutil.Visible(3, 9, 7), got)

	db.Reset()
	got, err = repo.FindVisibilities(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, got)
}
