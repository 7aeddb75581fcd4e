package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/items/12", http.StatusOK},
		{"/items/0", http.StatusBadRequest},
		{"/items/-3", http.StatusBadRequest},
		{"/items/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusBadRequest {
				var env envelope
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
				assert.Equal(t, "Invalid ID", env.Message)
				assert.Equal(t, models.CodeValidation, env.Code)
			}
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("pq: relation \"posts\" does not exist"))
	})
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return respondError(c, models.NewInternalError(errors.New("dial tcp 10.0.0.5:5432: refused")))
	})

	for _, path := range []string{"/boom", "/wrapped"} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var env envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.False(t, env.Success)
			assert.Equal(t, "Internal server error", env.Message)
			assert.NotContains(t, string(raw), "posts")
			assert.NotContains(t, string(raw), "10.0.0.5")
		})
	}
}

func TestRespondError_MapsAppErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest},
		{"conflict", models.NewConflictError("email", "Email already registered"), http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden},
		{"not found", models.NewNotFoundError("Post", 1), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, tt.err) })
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestParseBody_RejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := ts.register("malformed")

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
