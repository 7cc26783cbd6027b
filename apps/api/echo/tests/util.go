package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/masomo-lms/visibility/apps/api/echo"
	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/discussion"
	"github.com/masomo-lms/visibility/core/quiz"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/services/logger"
	"github.com/masomo-lms/visibility/storage/database/inmem"
	"github.com/masomo-lms/visibility/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Error: "invalid or expired jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	errInvalidAudience = httpErr{Error: "invalid token audience"}
)

func setup(t *testing.T) (*Server, *core.Config) {
	return setupWithRepo(t, inmemdb.NewVisibilityRepository(inmemdb.Open(testutil.Scenario())))
}

func setupWithRepo(t *testing.T, repo visibility.Repository) (*Server, *core.Config) {
	t.Helper()
	conf := core.NewTestConfig("")

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", 0), conf)
	logger.Enable(false)

	app := NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        logger,
			QuizSvc:       quiz.NewService(repo),
			DiscussionSvc: discussion.NewService(repo),
		},
	)
	return app, conf
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, subject string, roles ...string) string {
	token, err := GenerateToken(conf, NewClaims(conf, subject, roles...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
