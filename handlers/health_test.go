package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Unmatched routes must answer with the JSON error envelope, not Fiber's
// plain-text default.
func TestHandleNotFound_CatchAll(t *testing.T) {
	app := fiber.New()
	app.Get("/", HandleRoot)
	app.Use(HandleNotFound)

	req := httptest.NewRequest("GET", "/no/such/route", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, false, body["success"])

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
	assert.Equal(t, "Route not found", errObj["message"])
}

func TestHandleNotFound_RegisteredRoutesUnaffected(t *testing.T) {
	app := fiber.New()
	app.Get("/", HandleRoot)
	app.Use(HandleNotFound)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
