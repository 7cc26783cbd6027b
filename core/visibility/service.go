package visibility

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownScope = errors.New("unknown visibility scope")

type (
	// Repository evaluates a visibility query against a store.
	// Implementations return distinct tuples ordered by course, user and object.
	Repository interface {
		FindVisibilities(ctx context.Context, q Query) ([]Visibility, error)
	}

	Service struct {
		kind Kind
		repo Repository
	}
)

func NewService(kind Kind, repo Repository) *Service {
	return &Service{kind: kind, repo: repo}
}

func (svc *Service) Kind() Kind {
	return svc.kind
}

func (svc *Service) run(ctx context.Context, p Plan, filter Filter) ([]Visibility, error) {
	if err := filter.Validate(svc.kind); err != nil {
		return nil, err
	}
	if filter.matchesNothing() {
		return []Visibility{}, nil
	}
	return svc.repo.FindVisibilities(ctx, Query{Kind: svc.kind, Plan: p, Filter: filter})
}

// Find runs the plan of a named scope.
func (svc *Service) Find(ctx context.Context, scope Scope, filter Filter) ([]Visibility, error) {
	p, ok := PlanFor(scope)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScope, "%q", scope)
	}
	return svc.run(ctx, p, filter)
}

// VisibleToEveryone: only_visible_to_overrides is false, and the object sits in no module
// or in at least one module without overrides.
func (svc *Service) VisibleToEveryone(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeEveryone, filter)
}

// AssignedToSections: section overrides (object or module) minus section unassignments.
func (svc *Service) AssignedToSections(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeAssignedSections, filter)
}

// VisibleToSections: section overrides and related module section overrides.
func (svc *Service) VisibleToSections(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeSections, filter)
}

// WithUnassignedSectionOverrides: students of sections the object was unassigned from.
func (svc *Service) WithUnassignedSectionOverrides(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeUnassignedSections, filter)
}

// AssignedToAdhocOverrides: ADHOC overrides (object or module) minus ADHOC unassignments.
func (svc *Service) AssignedToAdhocOverrides(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeAssignedAdhoc, filter)
}

// WithUnassignedAdhocOverrides: students the object was unassigned from individually.
func (svc *Service) WithUnassignedAdhocOverrides(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeUnassignedAdhoc, filter)
}

// VisibleToAdhocOverrides: ADHOC overrides and related module ADHOC overrides.
func (svc *Service) VisibleToAdhocOverrides(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeAdhoc, filter)
}

func (svc *Service) VisibleToCourseOverrides(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeCourse, filter)
}

// Full is everything a student can see.
func (svc *Service) Full(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeFull, filter)
}

// AssignedToOthers is Full without the everyone category.
func (svc *Service) AssignedToOthers(ctx context.Context, filter Filter) ([]Visibility, error) {
	return svc.Find(ctx, ScopeOthers, filter)
}

// Breakdown evaluates every category on its own, concurrently.
func (svc *Service) Breakdown(ctx context.Context, filter Filter) (map[Category][]Visibility, error) {
	if err := filter.Validate(svc.kind); err != nil {
		return nil, err
	}

	result := make(map[Category][]Visibility, len(Categories))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for _, cat := range Categories {
		cat := cat
		eg.Go(func() error {
			vs, err := svc.run(egCtx, plan(cat), filter)
			if err != nil {
				return errors.Wrapf(err, "evaluating %s", cat)
			}
			mu.Lock()
			result[cat] = vs
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
