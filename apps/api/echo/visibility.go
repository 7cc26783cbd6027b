package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/masomo-lms/visibility/core/discussion"
	"github.com/masomo-lms/visibility/core/quiz"
	"github.com/masomo-lms/visibility/core/visibility"
)

type visibilityApi struct {
	quizSvc       *quiz.Service
	discussionSvc *discussion.Service
}

type scopeInfo struct {
	Scope visibility.Scope `json:"scope"`
	Plan  string           `json:"plan"`
}

func registerVisibilityAPI(g *echo.Group, jwt echo.MiddlewareFunc, quizSvc *quiz.Service, discussionSvc *discussion.Service) {
	api := visibilityApi{
		quizSvc:       quizSvc,
		discussionSvc: discussionSvc,
	}

	vg := g.Group("/visibility", jwt, staffMiddleware())
	vg.GET("/scopes", api.scopes)
	vg.GET("/quizzes", api.quizzes)
	vg.GET("/quizzes/breakdown", api.quizzesBreakdown)
	vg.GET("/discussion_topics", api.discussionTopics)
	vg.GET("/discussion_topics/breakdown", api.discussionTopicsBreakdown)
}

// Handlers

func (api *visibilityApi) scopes(ctx echo.Context) error {
	scopes := visibility.Scopes()
	res := make([]scopeInfo, 0, len(scopes))
	for _, s := range scopes {
		p, _ := visibility.PlanFor(s)
		res = append(res, scopeInfo{Scope: s, Plan: p.String()})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *visibilityApi) quizzes(ctx echo.Context) error {
	var q visibilityQuery
	if err := q.Bind(ctx, visibility.Quiz); err != nil {
		return err
	}
	res, err := api.quizSvc.Find(ctx.Request().Context(), q.scope(), quizParams(q))
	if err != nil {
		return errors.Wrap(err, "finding quiz visibilities")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *visibilityApi) quizzesBreakdown(ctx echo.Context) error {
	var q visibilityQuery
	if err := q.Bind(ctx, visibility.Quiz); err != nil {
		return err
	}
	res, err := api.quizSvc.Breakdown(ctx.Request().Context(), quizParams(q))
	if err != nil {
		return errors.Wrap(err, "breaking down quiz visibilities")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *visibilityApi) discussionTopics(ctx echo.Context) error {
	var q visibilityQuery
	if err := q.Bind(ctx, visibility.DiscussionTopic); err != nil {
		return err
	}
	res, err := api.discussionSvc.Find(ctx.Request().Context(), q.scope(), discussionParams(q))
	if err != nil {
		return errors.Wrap(err, "finding discussion topic visibilities")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *visibilityApi) discussionTopicsBreakdown(ctx echo.Context) error {
	var q visibilityQuery
	if err := q.Bind(ctx, visibility.DiscussionTopic); err != nil {
		return err
	}
	res, err := api.discussionSvc.Breakdown(ctx.Request().Context(), discussionParams(q))
	if err != nil {
		return errors.Wrap(err, "breaking down discussion topic visibilities")
	}
	return ctx.JSON(http.StatusOK, res)
}

func quizParams(q visibilityQuery) quiz.Params {
	f := q.filter()
	return quiz.Params{CourseIDs: f.CourseIDs, UserIDs: f.UserIDs, QuizIDs: f.ObjectIDs}
}

func discussionParams(q visibilityQuery) discussion.Params {
	f := q.filter()
	return discussion.Params{CourseIDs: f.CourseIDs, UserIDs: f.UserIDs, DiscussionTopicIDs: f.ObjectIDs}
}
