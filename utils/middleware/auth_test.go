package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/redteam-academy/api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roleApp builds an app where the request role is injected ahead of the
// RequireRole guard, standing in for what Required() stores on a real request.
func roleApp(role string) *fiber.App {
	m := &AuthMiddleware{}

	app := fiber.New()
	app.Get("/admin",
		func(c *fiber.Ctx) error {
			if role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
		m.RequireRole(model.RoleAdmin),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
	)
	return app
}

func getStatus(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestRequireRole(t *testing.T) {
	status, _ := getStatus(t, roleApp(model.RoleAdmin), "/admin")
	assert.Equal(t, fiber.StatusOK, status)

	status, raw := getStatus(t, roleApp(model.RoleUser), "/admin")
	assert.Equal(t, fiber.StatusForbidden, status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])

	// No role in context at all, as for an unauthenticated request
	status, _ = getStatus(t, roleApp(""), "/admin")
	assert.Equal(t, fiber.StatusForbidden, status)
}
