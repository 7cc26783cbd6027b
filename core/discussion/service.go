package discussion

import (
	"context"

	"github.com/masomo-lms/visibility/core/visibility"
)

// VisibleToStudent tells that a student (user) of a course can see an ungraded discussion topic.
type VisibleToStudent struct {
	CourseID          int64 `json:"course_id"`
	DiscussionTopicID int64 `json:"discussion_topic_id"`
	UserID            int64 `json:"user_id"`
}

// Params limits a visibility lookup. Unset (nil) ids place no restriction.
type Params struct {
	CourseIDs          visibility.IDs
	UserIDs            visibility.IDs
	DiscussionTopicIDs visibility.IDs
}

func (p Params) filter() visibility.Filter {
	return visibility.Filter{CourseIDs: p.CourseIDs, UserIDs: p.UserIDs, ObjectIDs: p.DiscussionTopicIDs}
}

type Service struct {
	vis *visibility.Service
}

func NewService(repo visibility.Repository) *Service {
	return &Service{vis: visibility.NewService(visibility.DiscussionTopic, repo)}
}

func topicsOf(vs []visibility.Visibility) []VisibleToStudent {
	res := make([]VisibleToStudent, 0, len(vs))
	for _, v := range vs {
		res = append(res, VisibleToStudent{CourseID: v.CourseID, DiscussionTopicID: v.ObjectID, UserID: v.UserID})
	}
	return res
}

func toTopics(vs []visibility.Visibility, err error) ([]VisibleToStudent, error) {
	if err != nil {
		return nil, err
	}
	return topicsOf(vs), nil
}

func (svc *Service) Find(ctx context.Context, scope visibility.Scope, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.Find(ctx, scope, p.filter()))
}

func (svc *Service) FindVisibleToEveryone(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.VisibleToEveryone(ctx, p.filter()))
}

func (svc *Service) FindAssignedToSections(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.AssignedToSections(ctx, p.filter()))
}

func (svc *Service) FindVisibleToSections(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.VisibleToSections(ctx, p.filter()))
}

func (svc *Service) FindWithUnassignedSectionOverrides(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.WithUnassignedSectionOverrides(ctx, p.filter()))
}

func (svc *Service) FindAssignedToAdhocOverrides(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.AssignedToAdhocOverrides(ctx, p.filter()))
}

func (svc *Service) FindWithUnassignedAdhocOverrides(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.WithUnassignedAdhocOverrides(ctx, p.filter()))
}

func (svc *Service) FindVisibleToAdhocOverrides(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.VisibleToAdhocOverrides(ctx, p.filter()))
}

func (svc *Service) FindVisibleToCourseOverrides(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.VisibleToCourseOverrides(ctx, p.filter()))
}

// FullVisibility is every ungraded discussion topic a student can see.
func (svc *Service) FullVisibility(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.Full(ctx, p.filter()))
}

func (svc *Service) FindAssignedToOthers(ctx context.Context, p Params) ([]VisibleToStudent, error) {
	return toTopics(svc.vis.AssignedToOthers(ctx, p.filter()))
}

func (svc *Service) Breakdown(ctx context.Context, p Params) (map[visibility.Category][]VisibleToStudent, error) {
	cats, err := svc.vis.Breakdown(ctx, p.filter())
	if err != nil {
		return nil, err
	}
	res := make(map[visibility.Category][]VisibleToStudent, len(cats))
	for cat, vs := range cats {
		res[cat] = topicsOf(vs)
	}
	return res, nil
}
