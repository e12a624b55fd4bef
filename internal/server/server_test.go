package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	achievementdomain "github.com/smallbiznis/academy/internal/achievement/domain"
	achievementrepository "github.com/smallbiznis/academy/internal/achievement/repository"
	achievementservice "github.com/smallbiznis/academy/internal/achievement/service"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	certificaterepository "github.com/smallbiznis/academy/internal/certificate/repository"
	certificateservice "github.com/smallbiznis/academy/internal/certificate/service"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
	courserepository "github.com/smallbiznis/academy/internal/course/repository"
	courseservice "github.com/smallbiznis/academy/internal/course/service"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/observability"
	progressdomain "github.com/smallbiznis/academy/internal/progress/domain"
	progressrepository "github.com/smallbiznis/academy/internal/progress/repository"
	progressservice "github.com/smallbiznis/academy/internal/progress/service"
	"github.com/smallbiznis/academy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	srv      *Server
	pub      *testutil.Publisher
	progress progressdomain.Service
	certs    certificatedomain.Service
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	db := testutil.OpenSQLite(t,
		&coursedomain.Course{},
		&coursedomain.Level{},
		&certificatedomain.Certificate{},
		&progressdomain.Progress{},
		&achievementdomain.Achievement{},
	)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	pub := &testutil.Publisher{}

	courses := courseservice.New(courseservice.Params{DB: db, Log: log, GenID: node, Repo: courserepository.Provide(), Clock: clk, Publisher: pub})
	certs := certificateservice.New(certificateservice.Params{
		DB:        db,
		Log:       log,
		Config:    config.Config{CertificateBaseURL: "https://academy.local/certificates"},
		GenID:     node,
		Repo:      certificaterepository.Provide(),
		CourseSvc: courses,
		Clock:     clk,
		Publisher: pub,
	})
	progress := progressservice.New(progressservice.Params{DB: db, Log: log, GenID: node, Repo: progressrepository.Provide(), Clock: clk})
	achievements := achievementservice.New(achievementservice.Params{DB: db, Log: log, GenID: node, Repo: achievementrepository.Provide(), Clock: clk})

	srv := NewServer(Params{
		Engine:         NewEngine(observability.Config{}),
		CourseSvc:      courses,
		CertificateSvc: certs,
		ProgressSvc:    progress,
		AchievementSvc: achievements,
	})
	return testServer{srv: srv, pub: pub, progress: progress, certs: certs}
}

func (ts testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.srv.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestPassLevelFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/courses", `{"name":"Go Basics"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var course coursedomain.CourseResponse
	decodeData(t, w, &course)

	w = ts.do(t, http.MethodPost, "/api/courses/"+course.ID+"/levels", `{"name":"Intro","progress":40}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var level coursedomain.LevelResponse
	decodeData(t, w, &level)

	pass := "/api/courses/" + course.ID + "/levels/" + level.ID + "/pass"
	w = ts.do(t, http.MethodPost, pass, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, pass, "", map[string]string{HeaderUserID: "u1"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, ts.pub.ByKey(events.CourseLevelPassedKey), 1)

	w = ts.do(t, http.MethodGet, "/api/courses/"+course.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got coursedomain.CourseResponse
	decodeData(t, w, &got)
	assert.Len(t, got.Levels, 1)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/courses", `{"name":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"invalid_name"`)

	w = ts.do(t, http.MethodPost, "/api/courses", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/courses/123456", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/courses/123456/certificate", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCertificateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/courses", `{"name":"Go Basics"}`, nil)
	var course coursedomain.CourseResponse
	decodeData(t, w, &course)
	courseID, err := strconv.ParseInt(course.ID, 10, 64)
	require.NoError(t, err)

	_, err = ts.certs.HandleRequested(t.Context(), events.CertificateRequested{UserID: "u1", CourseID: courseID})
	require.NoError(t, err)

	w = ts.do(t, http.MethodGet, "/api/courses/"+course.ID+"/certificate", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cert certificatedomain.Response
	decodeData(t, w, &cert)
	assert.Equal(t, "Go Basics Certificate", cert.Name)
	assert.True(t, strings.HasPrefix(cert.ReferenceURL, "https://academy.local/certificates/go-basics-"))
}

func TestUserListings(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.progress.ApplyLevelPassed(t.Context(), events.CourseLevelPassed{UserID: "u1", CourseID: 5, LevelID: 1, Progress: 30, CourseName: "Go Basics"})
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/api/users/progress", "", map[string]string{HeaderUserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	var progress []progressdomain.Response
	decodeData(t, w, &progress)
	require.Len(t, progress, 1)
	assert.Equal(t, 30, progress[0].Progress)
	assert.False(t, progress[0].Completed)

	w = ts.do(t, http.MethodGet, "/api/users/achievements", "", map[string]string{HeaderUserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	var achievements []achievementdomain.Response
	decodeData(t, w, &achievements)
	assert.Empty(t, achievements)

	w = ts.do(t, http.MethodGet, "/api/users/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
