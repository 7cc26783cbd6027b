package visibility

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masomo-lms/visibility/core"
)

// repoMock records the queries it receives and answers with one tuple per plan step.
type repoMock struct {
	mu      sync.Mutex
	queries []Query
	err     error
}

func (repo *repoMock) FindVisibilities(_ context.Context, q Query) ([]Visibility, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.queries = append(repo.queries, q)
	if repo.err != nil {
		return nil, repo.err
	}
	return []Visibility{{CourseID: 1, UserID: int64(len(q.Plan)), ObjectID: 1}}, nil
}

func TestService_operations(t *testing.T) {
	filter := Filter{CourseIDs: ID(1)}

	tests := []struct {
		name string
		op   func(*Service) func(context.Context, Filter) ([]Visibility, error)
		want Scope
	}{
		{name: "VisibleToEveryone", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.VisibleToEveryone }, want: ScopeEveryone},
		{name: "AssignedToSections", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.AssignedToSections }, want: ScopeAssignedSections},
		{name: "VisibleToSections", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.VisibleToSections }, want: ScopeSections},
		{name: "WithUnassignedSectionOverrides", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.WithUnassignedSectionOverrides }, want: ScopeUnassignedSections},
		{name: "AssignedToAdhocOverrides", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.AssignedToAdhocOverrides }, want: ScopeAssignedAdhoc},
		{name: "WithUnassignedAdhocOverrides", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.WithUnassignedAdhocOverrides }, want: ScopeUnassignedAdhoc},
		{name: "VisibleToAdhocOverrides", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.VisibleToAdhocOverrides }, want: ScopeAdhoc},
		{name: "VisibleToCourseOverrides", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.VisibleToCourseOverrides }, want: ScopeCourse},
		{name: "Full", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.Full }, want: ScopeFull},
		{name: "AssignedToOthers", op: func(s *Service) func(context.Context, Filter) ([]Visibility, error) { return s.AssignedToOthers }, want: ScopeOthers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMock{}
			svc := NewService(Quiz, repo)

			_, err := tt.op(svc)(context.Background(), filter)
			require.NoError(t, err)
			require.Len(t, repo.queries, 1)

			want, _ := PlanFor(tt.want)
			assert.Equal(t, Query{Kind: Quiz, Plan: want, Filter: filter}, repo.queries[0])
		})
	}
}

func TestService_Find(t *testing.T) {
	repo := &repoMock{}
	svc := NewService(DiscussionTopic, repo)
	ctx := context.Background()

	_, err := svc.Find(ctx, "lol", Filter{CourseIDs: ID(1)})
	assert.True(t, errors.Is(err, ErrUnknownScope))

	_, err = svc.Find(ctx, ScopeFull, Filter{})
	assert.True(t, core.IsValidationError(err))

	got, err := svc.Find(ctx, ScopeFull, Filter{CourseIDs: ID(1), UserIDs: IDs{}})
	require.NoError(t, err)
	assert.Equal(t, []Visibility{}, got)
	assert.Empty(t, repo.queries, "empty id lists must not reach the store")

	repo.err = errors.New("boom")
	_, err = svc.Find(ctx, ScopeCourse, Filter{UserIDs: ID(1)})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, DiscussionTopic, svc.Kind())
}

func TestService_Breakdown(t *testing.T) {
	repo := &repoMock{}
	svc := NewService(Quiz, repo)

	got, err := svc.Breakdown(context.Background(), Filter{ObjectIDs: ID(1)})
	require.NoError(t, err)
	assert.Len(t, got, len(Categories))
	for _, cat := range Categories {
		assert.Equal(t, []Visibility{{CourseID: 1, UserID: 1, ObjectID: 1}}, got[cat], cat)
	}

	cats := make(map[Category]bool)
	for _, q := range repo.queries {
		require.Len(t, q.Plan, 1)
		cats[q.Plan[0].Category] = true
	}
	assert.Len(t, cats, len(Categories))

	_, err = svc.Breakdown(context.Background(), Filter{})
	assert.True(t, core.IsValidationError(err))

	repo.err = errors.New("boom")
	_, err = svc.Breakdown(context.Background(), Filter{ObjectIDs: ID(1)})
	assert.Error(t, err)
}
