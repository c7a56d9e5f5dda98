package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hospverse/internal/http/handlers"
	"hospverse/internal/repos"
)

func TestSeededPasswordsAreHashed(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var hashes []string
	require.NoError(t, db.Select(&hashes, `SELECT password_hash FROM users`))
	require.NotEmpty(t, hashes)
	for _, h := range hashes {
		assert.NotContains(t, h, "Passw0rd!")
		assert.True(t, strings.HasPrefix(h, "$2"), "unexpected hash format %s", h)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Passw0rd!")))
	}
}

func TestDemoLoginRedirectsToPortal(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	tok := csrfToken(t, app)

	resp := postForm(t, app, "/login?role=hr", tok, url.Values{"email": {"abc"}, "password": {"123"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/hr", resp.Header.Get("Location"))
	sid := cookie(resp, "sid")
	require.NotNil(t, sid)

	page := get(t, app, "/hr", sid)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, body(t, page), "HR Dashboard")
}

func TestDemoLoginFailures(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	tok := csrfToken(t, app)

	bad := postForm(t, app, "/login?role=doctor", tok, url.Values{"email": {"abc"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
	assert.Contains(t, body(t, bad), "Use abc/123 for demo")

	empty := postForm(t, app, "/login?role=doctor", tok, url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, empty.StatusCode)

	unknown := postForm(t, app, "/login?role=janitor", tok, url.Values{"email": {"abc"}, "password": {"123"}})
	assert.Equal(t, http.StatusBadRequest, unknown.StatusCode)
}

func TestLoginFormWithoutRoleGoesToPicker(t *testing.T) {
	app, _ := newTestApp(t, true, nil)

	resp := get(t, app, "/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/select-role", resp.Header.Get("Location"))

	picker := get(t, app, "/select-role")
	require.Equal(t, http.StatusOK, picker.StatusCode)
	html := body(t, picker)
	for _, p := range []string{"/login?role=doctor", "/login?role=inventory", "/login?role=procedures"} {
		assert.Contains(t, html, p)
	}
}

func TestStoredPasswordLogin(t *testing.T) {
	app, _ := newTestApp(t, true, func(d *handlers.Deps) { d.AuthHandler.DemoMode = false })
	tok := csrfToken(t, app)

	bad := postForm(t, app, "/login?role=admin", tok, url.Values{"email": {"admin@skinclinic.test"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	// the user's own role picks the destination, not the portal they came from
	ok := postForm(t, app, "/login?role=doctor", tok, url.Values{"email": {"admin@skinclinic.test"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusFound, ok.StatusCode)
	assert.Equal(t, "/admin", ok.Header.Get("Location"))
}

func TestLoginThrottle(t *testing.T) {
	app, _ := newTestApp(t, true, func(d *handlers.Deps) { d.LoginMax = 2 })
	tok := csrfToken(t, app)
	form := func() url.Values { return url.Values{"email": {"abc"}, "password": {"bad"}} }

	for i := 0; i < 2; i++ {
		resp := postForm(t, app, "/login?role=billing", tok, form())
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	third := postForm(t, app, "/login?role=billing", tok, form())
	assert.Equal(t, http.StatusTooManyRequests, third.StatusCode)
	assert.Contains(t, body(t, third), "Too many attempts")
}

func TestLoginRequiresCSRF(t *testing.T) {
	logs := observeLogs(t)
	app, _ := newTestApp(t, true, nil)

	resp := postForm(t, app, "/login?role=hr", "forged", url.Values{"email": {"abc"}, "password": {"123"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, logs.FilterMessage("csrf.fail").Len())
}

func TestLogoutClearsSessionAndIsIdempotent(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "reception")

	require.Equal(t, http.StatusOK, get(t, app, "/reception", sid).StatusCode)

	out := get(t, app, "/logout", sid)
	assert.Equal(t, http.StatusFound, out.StatusCode)
	assert.Equal(t, "/select-role", out.Header.Get("Location"))

	after := get(t, app, "/reception", sid)
	assert.Equal(t, http.StatusFound, after.StatusCode)
	assert.Equal(t, "/select-role", after.Header.Get("Location"))

	again := get(t, app, "/logout")
	assert.Equal(t, http.StatusFound, again.StatusCode)
}

func TestDashboardRedirect(t *testing.T) {
	app, _ := newTestApp(t, true, nil)

	anon := get(t, app, "/dashboard")
	assert.Equal(t, "/select-role", anon.Header.Get("Location"))

	sid := demoLogin(t, app, "inventory")
	resp := get(t, app, "/dashboard", sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/inventory", resp.Header.Get("Location"))
}
