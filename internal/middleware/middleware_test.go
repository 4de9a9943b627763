package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"inventrack/internal/service"
	"inventrack/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	claims *jwt.Claims
	err    error
}

func (s stubAuth) Authenticate(context.Context, string) (*jwt.Claims, error) {
	return s.claims, s.err
}

func protectedApp(auth Authenticator, gates ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{RequireAuth(auth)}, gates...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals(LocalUserID), "name": c.Locals(LocalUserName)})
	})
	app.Get("/", handlers...)
	return app
}

func do(t *testing.T, app *fiber.App, header string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRequireAuth(t *testing.T) {
	id := uuid.New()
	ok := stubAuth{claims: &jwt.Claims{UserID: id, Name: "Operator", Privileges: []string{"product:view"}}}

	tests := []struct {
		name   string
		auth   Authenticator
		header string
		status int
		error  string
	}{
		{"missing header", ok, "", 401, "Missing authorization token"},
		{"bad scheme", ok, "Basic abc", 401, "Invalid authorization format. Use: Bearer <token>"},
		{"invalid token", stubAuth{err: jwt.ErrInvalidToken}, "Bearer x", 401, "Invalid or expired token"},
		{"replaced session", stubAuth{err: service.ErrSessionReplaced}, "Bearer x", 401, "Session expired (logged in on another device)"},
		{"inactive", stubAuth{err: service.ErrUserInactive}, "Bearer x", 401, "User account is inactive"},
		{"storage", stubAuth{err: &service.StorageError{Op: "find user", Err: errors.New("down")}}, "Bearer x", 500, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, protectedApp(tt.auth), tt.header)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.error, body["error"])
		})
	}

	status, body := do(t, protectedApp(ok), "bearer token")
	assert.Equal(t, 200, status)
	assert.Equal(t, id.String(), body["user_id"])
	assert.Equal(t, "Operator", body["name"])
}

func TestRequirePrivilege(t *testing.T) {
	auth := stubAuth{claims: &jwt.Claims{UserID: uuid.New(), Privileges: []string{"product:view"}}}

	status, _ := do(t, protectedApp(auth, RequirePrivilege("product:view")), "Bearer x")
	assert.Equal(t, 200, status)

	status, body := do(t, protectedApp(auth, RequirePrivilege("product:delete")), "Bearer x")
	assert.Equal(t, 403, status)
	assert.Equal(t, "Forbidden: requires 'product:delete' privilege", body["error"])

	status, _ = do(t, protectedApp(auth, RequireAnyPrivilege("report:view", "product:view")), "Bearer x")
	assert.Equal(t, 200, status)

	status, _ = do(t, protectedApp(auth, RequireAnyPrivilege("report:view")), "Bearer x")
	assert.Equal(t, 403, status)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, time.Minute)
	app := fiber.New()
	app.Post("/login", limiter.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{204, 204, 429}, codes, fmt.Sprint(codes))
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.visitor("10.0.0.1")
	limiter.visitor("10.0.0.2")
	assert.Equal(t, 2, limiter.Cleanup())

	now = now.Add(30 * time.Second)
	limiter.visitor("10.0.0.2")
	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, limiter.Cleanup())
}
