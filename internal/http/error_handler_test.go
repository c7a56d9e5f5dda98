package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospverse/internal/http/handlers"
)

func newErrorApp() *fiber.App {
	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: handlers.ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("db timeout: secret trace")
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusGone, "Appointment was removed")
	})
	app.Get("/api/boom", func(c *fiber.Ctx) error {
		return errors.New("db timeout: secret trace")
	})
	return app
}

func TestErrorHandlerFriendlyMessage(t *testing.T) {
	logs := observeLogs(t)
	app := newErrorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	s := body(t, resp)
	assert.Contains(t, s, "Something went wrong")
	assert.NotContains(t, s, "secret")

	entries := logs.FilterMessage("server.error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "db timeout: secret trace", entries[0].ContextMap()["error"])
}

func TestErrorHandlerKeepsClientErrors(t *testing.T) {
	observeLogs(t)
	app := newErrorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Appointment was removed")
}

func TestErrorHandlerJSONForAPI(t *testing.T) {
	observeLogs(t)
	app := newErrorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "internal error", out["error"])
}
