package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-api/internal/domain"
	"user-api/internal/repository/jsonfile"
	"user-api/internal/service"
)

type testServer struct {
	router *gin.Engine
	hook   *test.Hook
}

func newTestServer(t *testing.T, users service.UserService) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	if users == nil {
		repo := jsonfile.NewUserRepository(jsonfile.Config{
			Path:   filepath.Join(t.TempDir(), "db.json"),
			Logger: logger,
		})
		require.NoError(t, repo.Init(context.Background()))
		users = service.NewUserService(repo, nil)
	}

	router := gin.New()
	router.Use(Recovery(logger))
	NewHandler(users, logger).RegisterRoutes(router)
	return &testServer{router: router, hook: hook}
}

type response struct {
	Code   int
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Raw    string
}

func (s *testServer) do(t *testing.T, method, path, body string) response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	resp := response{Code: rec.Code, Raw: rec.Body.String()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return resp
}

func (r response) user(t *testing.T) UserResponse {
	t.Helper()
	var u UserResponse
	require.NoError(t, json.Unmarshal(r.Data, &u))
	return u
}

func (r response) errorMessage(t *testing.T) string {
	t.Helper()
	var e errorData
	require.NoError(t, json.Unmarshal(r.Data, &e))
	return e.Error
}

const annBody = `{"name":"Ann","email":"a@x.com","password":"p","mobile":"123","description":"d"}`

func TestCreateUser(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodPost, "/api/users", annBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	assert.Equal(t, "OK", resp.Status)

	user := resp.user(t)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "p", user.Password)
	assert.Equal(t, "123", user.Mobile)
	assert.Equal(t, "d", user.Description)
	assert.NotEmpty(t, user.CreatedAt)
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	_, err := domain.ParseTimestamp(user.CreatedAt)
	assert.NoError(t, err)
}

func TestCreateUserDuplicateName(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/users", annBody).Code)

	resp := srv.do(t, http.MethodPost, "/api/users",
		`{"name":"Ann","email":"b@y.com","password":"q","mobile":"456","description":"e"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"status":"FAILED","data":{"error":"User with the name 'Ann' already exists"}}`, resp.Raw)
}

func TestCreateUserMissingFields(t *testing.T) {
	bodies := map[string]string{
		"missing description": `{"name":"Ann","email":"a@x.com","password":"p","mobile":"123"}`,
		"empty name":          `{"name":"","email":"a@x.com","password":"p","mobile":"123","description":"d"}`,
		"empty object":        `{}`,
		"not json":            `name=Ann`,
		"no body":             ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, nil)
			resp := srv.do(t, http.MethodPost, "/api/users", body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "FAILED", resp.Status)
			assert.Equal(t, msgMissingFields, resp.errorMessage(t))

			list := srv.do(t, http.MethodGet, "/api/users", "")
			assert.JSONEq(t, `{"status":"OK","data":[]}`, list.Raw)
		})
	}
}

func TestGetAllUsers(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"OK","data":[]}`, resp.Raw)

	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp = srv.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(resp.Data, &users))
	assert.Equal(t, []UserResponse{created}, users)
}

func TestTrailingSlashCollectionRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodPost, "/api/users/", annBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	created := resp.user(t)

	resp = srv.do(t, http.MethodGet, "/api/users/", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(resp.Data, &users))
	assert.Equal(t, []UserResponse{created}, users)

	resp = srv.do(t, http.MethodPost, "/api/users/", annBody)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "User with the name 'Ann' already exists", resp.errorMessage(t))
}

func TestGetOneUser(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp := srv.do(t, http.MethodGet, "/api/users/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, created, resp.user(t))
}

func TestGetOneUserNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodGet, "/api/users/does-not-exist", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"status":"FAILED","data":{"error":"Can't find user with the id 'does-not-exist'"}}`, resp.Raw)
}

func TestUserIDIsNotTrimmed(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp := srv.do(t, http.MethodGet, "/api/users/%20"+created.ID, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Can't find user with the id ' "+created.ID+"'", resp.errorMessage(t))

	resp = srv.do(t, http.MethodDelete, "/api/users/"+created.ID+"%20", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = srv.do(t, http.MethodGet, "/api/users/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBlankUserIDHalts(t *testing.T) {
	users := &stubService{}
	srv := newTestServer(t, users)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			resp := srv.do(t, method, "/api/users/%20", "")
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, msgMissingUserID, resp.errorMessage(t))
		})
	}
	assert.Zero(t, users.calls, "service must not be reached")
}

func TestUpdateUser(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			resp := srv.do(t, method, "/api/users/"+created.ID,
				`{"description":"x","id":"hijack","createdAt":"1/1/2000, 1:00:00 AM"}`)
			require.Equal(t, http.StatusOK, resp.Code, resp.Raw)

			updated := resp.user(t)
			assert.Equal(t, created.ID, updated.ID)
			assert.Equal(t, created.CreatedAt, updated.CreatedAt)
			assert.Equal(t, "x", updated.Description)
			assert.Equal(t, created.Name, updated.Name)
			assert.Equal(t, created.Email, updated.Email)
		})
	}
}

func TestUpdateUserEmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp := srv.do(t, http.MethodPatch, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)
	assert.Equal(t, created.Description, resp.user(t).Description)
}

func TestUpdateUserChunkedEmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	// an io.Reader of unknown length makes the request chunked
	req := httptest.NewRequest(http.MethodPatch, "/api/users/"+created.ID, io.MultiReader())
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, int64(-1), req.ContentLength)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Status string       `json:"status"`
		Data   UserResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, created.Description, resp.Data.Description)
	assert.Equal(t, created.Name, resp.Data.Name)
}

func TestUpdateUserInvalidBody(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp := srv.do(t, http.MethodPatch, "/api/users/"+created.ID, `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, msgInvalidBody, resp.errorMessage(t))
}

func TestUpdateUserNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodPatch, "/api/users/nope", `{"description":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Can't find user with the id 'nope'", resp.errorMessage(t))
}

func TestUpdateUserNameConflict(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, http.MethodPost, "/api/users", annBody)
	bob := srv.do(t, http.MethodPost, "/api/users",
		`{"name":"Bob","email":"b@x.com","password":"p","mobile":"1","description":"d"}`).user(t)

	resp := srv.do(t, http.MethodPut, "/api/users/"+bob.ID, `{"name":"Ann"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "User with the name 'Ann' already exists", resp.errorMessage(t))
}

func TestDeleteUser(t *testing.T) {
	srv := newTestServer(t, nil)
	created := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	resp := srv.do(t, http.MethodDelete, "/api/users/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Raw)

	resp = srv.do(t, http.MethodGet, "/api/users/"+created.ID, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Can't find user with the id '"+created.ID+"'", resp.errorMessage(t))

	resp = srv.do(t, http.MethodDelete, "/api/users/"+created.ID, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInternalErrorsMapTo500(t *testing.T) {
	users := &stubService{err: domain.NewInternalError("save document", errors.New("disk full"))}
	srv := newTestServer(t, users)

	resp := srv.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"status":"FAILED","data":{"error":"save document: disk full"}}`, resp.Raw)

	users.err = errors.New("unclassified")
	resp = srv.do(t, http.MethodGet, "/api/users/some-id", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "unclassified", resp.errorMessage(t))

	var sawError bool
	for _, entry := range srv.hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["status"] == http.StatusInternalServerError {
			sawError = true
		}
	}
	assert.True(t, sawError, "5xx responses are logged at error level")
}

func TestPanicsAnswerWithEnvelope(t *testing.T) {
	srv := newTestServer(t, &stubService{panicMsg: "boom"})

	resp := srv.do(t, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "FAILED", resp.Status)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := srv.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"OK"}`, resp.Raw)

	resp = srv.do(t, http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "FAILED", resp.Status)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type stubService struct {
	calls    int
	err      error
	panicMsg string
}

func (s *stubService) result() error {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func (s *stubService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return nil, s.result()
}

func (s *stubService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return nil, s.result()
}

func (s *stubService) CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error) {
	return nil, s.result()
}

func (s *stubService) UpdateUser(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	return nil, s.result()
}

func (s *stubService) DeleteUser(ctx context.Context, id string) error {
	return s.result()
}

var _ service.UserService = (*stubService)(nil)

// keep the fixed layout honest: the API renders second precision timestamps
func TestTimestampsAreSecondPrecision(t *testing.T) {
	srv := newTestServer(t, nil)
	user := srv.do(t, http.MethodPost, "/api/users", annBody).user(t)

	ts, err := domain.ParseTimestamp(user.CreatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}
