package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-0123456789abcdef"

// envelope mirrors models.Envelope with Data left raw for per-test decoding.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     []models.FieldError `json:"errors"`
	Code       string              `json:"code"`
	Pagination *models.Pagination  `json:"pagination"`
}

type testServer struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		JWTSecret:      testSecret,
		Port:           "0",
		Env:            "test",
		AllowedOrigins: "*",
		FeatureFlags:   "rendered_content=on,live_feed=on",
		BcryptCost:     bcrypt.MinCost,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testServer{t: t, srv: srv, app: srv.NewApp(), db: db}
}

// do sends a JSON request and decodes the envelope. token may be empty.
func (ts *testServer) do(method, path string, body any, token string) (int, envelope) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	if len(raw) > 0 {
		require.NoError(ts.t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp.StatusCode, env
}

// register creates an account through the API and returns its token and user.
func (ts *testServer) register(username string) (string, models.User) {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testutil.TestPassword,
	}, "")
	require.Equal(ts.t, http.StatusCreated, status, env.Message)

	var result struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(ts.t, json.Unmarshal(env.Data, &result))
	return result.Token, result.User
}

// login signs in a fixture user created with testutil.CreateUser.
func (ts *testServer) login(username string) string {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    username + "@example.com",
		"password": testutil.TestPassword,
	}, "")
	require.Equal(ts.t, http.StatusOK, status, env.Message)

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(ts.t, json.Unmarshal(env.Data, &result))
	return result.Token
}

// admin inserts an admin account and returns its token.
func (ts *testServer) admin(username string) (string, *models.User) {
	ts.t.Helper()
	user := testutil.CreateUser(ts.t, ts.db, username, models.RoleAdmin)
	return ts.login(username), user
}

func (ts *testServer) createPost(token string, body map[string]any) models.Post {
	ts.t.Helper()
	status, env := ts.do(http.MethodPost, "/api/posts", body, token)
	require.Equal(ts.t, http.StatusCreated, status, env.Message)
	var post models.Post
	require.NoError(ts.t, json.Unmarshal(env.Data, &post))
	return post
}

func postPath(id uint, suffix ...string) string {
	p := fmt.Sprintf("/api/posts/%d", id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err = ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	status, env := ts.do(http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}
