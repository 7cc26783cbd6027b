package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/masomo-lms/visibility/apps/api/echo"
	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/discussion"
	"github.com/masomo-lms/visibility/core/quiz"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/tests"
)

func TestHome(t *testing.T) {
	app, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Visibility API!", rec.Body.String())
}

func quizRow(quizID, userID int64) quiz.VisibleToStudent {
	return quiz.VisibleToStudent{CourseID: testutil.Course1, QuizID: quizID, UserID: userID}
}

func topicRow(topicID, userID int64) discussion.VisibleToStudent {
	return discussion.VisibleToStudent{CourseID: testutil.Course1, DiscussionTopicID: topicID, UserID: userID}
}

func limitErr(kind visibility.Kind) map[string]string {
	msg := kind.Name + "VisibleToStudents must have a limiting where clause of at least one " +
		"course_id, user_id, or " + kind.IDColumn + " (for performance reasons)"
	return map[string]string{"course_id": msg, "user_id": msg, kind.IDColumn: msg}
}

func Test_visibilityApi_auth(t *testing.T) {
	app, conf := setup(t)

	expired := NewClaims(conf, "7", RoleTeacher)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := GenerateToken(conf, expired)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	audienceToken := func(aud string) string {
		claims := NewClaims(conf, "7", RoleTeacher)
		claims.Audience = aud
		token, err := GenerateToken(conf, claims)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		return token
	}

	path := "/v1/visibility/quizzes?quiz_id=1"
	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Valid token required", path: path, token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "Unexpired token required", path: path, token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{
			name: "Audience required", path: path, token: audienceToken(""),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidAudience),
		},
		{
			name: "Foreign audience", path: path, token: audienceToken("Elsewhere"),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidAudience),
		},
		{
			name: "Staff required", path: path, token: getToken(t, conf, "101", RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "No role", path: "/v1/visibility/discussion_topics?course_id=1", token: getToken(t, conf, "101"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin", path: path, token: getToken(t, conf, "1", RoleAdmin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []quiz.VisibleToStudent{
				quizRow(1, testutil.Student101), quizRow(1, testutil.Student102), quizRow(1, testutil.Student103),
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_visibilityApi_quizzes(t *testing.T) {
	app, conf := setup(t)
	token := getToken(t, conf, "7", RoleTeacher)
	empty := marchallObj(t, []interface{}{})

	tests := []httpTest{
		{
			name: "full by default", path: "/v1/visibility/quizzes?quiz_id=15",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []quiz.VisibleToStudent{
				quizRow(15, testutil.Student101), quizRow(15, testutil.Student102), quizRow(15, testutil.Student103),
			}),
		},
		{
			name: "comma separated ids", path: "/v1/visibility/quizzes?quiz_id=6,10",
			wantCode: http.StatusOK, wantData: marchallObj(t, []quiz.VisibleToStudent{quizRow(6, testutil.Student103)}),
		},
		{
			name: "repeated ids", path: "/v1/visibility/quizzes?quiz_id=6&quiz_id=10",
			wantCode: http.StatusOK, wantData: marchallObj(t, []quiz.VisibleToStudent{quizRow(6, testutil.Student103)}),
		},
		{
			name: "trailing slash", path: "/v1/visibility/quizzes/?quiz_id=6",
			wantCode: http.StatusOK, wantData: marchallObj(t, []quiz.VisibleToStudent{quizRow(6, testutil.Student103)}),
		},
		{
			name: "others of a student", path: "/v1/visibility/quizzes?user_id=102&scope=others",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []quiz.VisibleToStudent{
				quizRow(2, testutil.Student102), quizRow(7, testutil.Student102),
				quizRow(14, testutil.Student102), quizRow(15, testutil.Student102),
			}),
		},
		{
			name: "unassigned sections", path: "/v1/visibility/quizzes?course_id=1&scope=unassigned_sections",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []quiz.VisibleToStudent{
				quizRow(6, testutil.Student101), quizRow(15, testutil.Student101),
				quizRow(6, testutil.Student102), quizRow(15, testutil.Student102),
			}),
		},
		{
			name: "course 2", path: "/v1/visibility/quizzes?course_id=2",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []quiz.VisibleToStudent{{CourseID: testutil.Course2, QuizID: 11, UserID: testutil.Student201}}),
		},
		{name: "empty id list", path: "/v1/visibility/quizzes?course_id=", wantCode: http.StatusOK, wantData: empty},
		{name: "hidden quizzes", path: "/v1/visibility/quizzes?quiz_id=8,9", wantCode: http.StatusOK, wantData: empty},
		{
			name: "limiting filter required", path: "/v1/visibility/quizzes",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, limitErr(visibility.Quiz)),
		},
		{
			name: "unknown scope", path: "/v1/visibility/quizzes?quiz_id=1&scope=lol",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"scope": "scope must be a known visibility scope"}),
		},
		{
			name: "invalid id", path: "/v1/visibility/quizzes?course_id=1,abc",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"course_id": `"abc" is not a valid id`}),
		},
		{
			name: "negative id", path: "/v1/visibility/quizzes?user_id=-3",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": `"-3" is not a valid id`}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_visibilityApi_discussionTopics(t *testing.T) {
	app, conf := setup(t)
	token := getToken(t, conf, "7", RoleTeacher)

	tests := []httpTest{
		{
			name: "full", path: "/v1/visibility/discussion_topics?user_id=103",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []discussion.VisibleToStudent{
				topicRow(1, testutil.Student103), topicRow(2, testutil.Student103), topicRow(4, testutil.Student103),
			}),
		},
		{
			name: "sections", path: "/v1/visibility/discussion_topics?discussion_topic_id=2&scope=sections",
			wantCode: http.StatusOK, wantData: marchallObj(t, []discussion.VisibleToStudent{topicRow(2, testutil.Student103)}),
		},
		{
			name: "quiz_id is not a filter", path: "/v1/visibility/discussion_topics?quiz_id=2",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, limitErr(visibility.DiscussionTopic)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_visibilityApi_breakdown(t *testing.T) {
	app, conf := setup(t)
	token := getToken(t, conf, "7", RoleAdmin)
	none := []interface{}{}

	tests := []httpTest{
		{
			name: "quizzes", path: "/v1/visibility/quizzes/breakdown?quiz_id=10",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"everyone":            none,
				"sections":            []quiz.VisibleToStudent{quizRow(10, testutil.Student103)},
				"unassigned_sections": none,
				"adhoc":               none,
				"unassigned_adhoc":    []quiz.VisibleToStudent{quizRow(10, testutil.Student103)},
				"course":              none,
			}),
		},
		{
			name: "discussion topics", path: "/v1/visibility/discussion_topics/breakdown?discussion_topic_id=2&user_id=103",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"everyone":            none,
				"sections":            []discussion.VisibleToStudent{topicRow(2, testutil.Student103)},
				"unassigned_sections": none,
				"adhoc":               none,
				"unassigned_adhoc":    none,
				"course":              none,
			}),
		},
		{
			name: "limiting filter required", path: "/v1/visibility/quizzes/breakdown",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, limitErr(visibility.Quiz)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_visibilityApi_scopes(t *testing.T) {
	app, conf := setup(t)

	req, rec := newAuthRequest(http.MethodGet, "/v1/visibility/scopes", getToken(t, conf, "7", RoleTeacher))
	app.ServeHTTP(rec, req)

	want := make([]map[string]string, 0)
	for _, s := range visibility.Scopes() {
		p, _ := visibility.PlanFor(s)
		want = append(want, map[string]string{"scope": string(s), "plan": p.String()})
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)
}

// failingRepo stands for a store that cannot answer.
type failingRepo struct {
	err error
}

func (repo failingRepo) FindVisibilities(context.Context, visibility.Query) ([]visibility.Visibility, error) {
	return nil, repo.err
}

func Test_visibilityApi_serverErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "store error", err: errors.New("connection refused")},
		{name: "integrity error", err: errors.Wrap(core.NewShutdownError("integrity issue"), "querying"), wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, conf := setupWithRepo(t, failingRepo{err: tt.err})

			req, rec := newAuthRequest(http.MethodGet, "/v1/visibility/quizzes?course_id=1", getToken(t, conf, "7", RoleTeacher))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusInternalServerError,
				wantData: marchallObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)}),
			}, rec)

			var shutdown bool
			select {
			case <-app.ShutdownSignal():
				shutdown = true
			case <-time.After(50 * time.Millisecond):
			}
			assert.Equal(t, tt.wantShutdown, shutdown)
			_ = app.Shutdown(context.Background())
		})
	}
}
