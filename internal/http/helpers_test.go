package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"hospverse/internal/config"
	"hospverse/internal/http/handlers"
	applog "hospverse/internal/log"
	"hospverse/internal/repos"
	"hospverse/internal/session"
)

func testConfig() config.Config {
	return config.Config{
		DBDSN:                ":memory:",
		TemplatesDir:         "../../web/templates",
		StaticDir:            "../../web/static",
		DefaultTenant:        repos.DefaultTenantID,
		JWTSecret:            "test-secret",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      time.Hour,
		QueueRefreshInterval: time.Minute,
		DemoLogin:            true,
	}
}

// newTestApp builds the full app over a fresh in-memory database. tweak runs
// before the app is assembled; warm loads tenants so guarded pages render.
func newTestApp(t *testing.T, warm bool, tweak func(*handlers.Deps)) (*fiber.App, *handlers.Deps) {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := handlers.NewDeps(context.Background(), db, cfg, session.NewSQLStore(db))
	if tweak != nil {
		tweak(d)
	}
	if warm {
		require.NoError(t, d.Tenants.Warm(context.Background()))
	}
	return handlers.NewApp(d), d
}

func cookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// csrfToken fetches a login page and returns the token its cookie carries.
func csrfToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/login?role=hr", nil))
	require.NoError(t, err)
	c := cookie(resp, "csrf_")
	require.NotNil(t, c, "csrf cookie missing")
	return c.Value
}

func postForm(t *testing.T, app *fiber.App, path, tok string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	form.Set("csrf", tok)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// demoLogin signs into a portal with the demo pair and returns the sid cookie.
func demoLogin(t *testing.T, app *fiber.App, portal string) *http.Cookie {
	t.Helper()
	tok := csrfToken(t, app)
	resp := postForm(t, app, "/login?role="+portal, tok, url.Values{"email": {"abc"}, "password": {"123"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	sid := cookie(resp, "sid")
	require.NotNil(t, sid, "sid cookie missing")
	return sid
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// observeLogs routes the process logger into an observer for the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	old := applog.L()
	applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(old) })
	return logs
}
