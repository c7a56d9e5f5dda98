package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospverse/internal/domain"
	"hospverse/internal/repos"
)

func TestPortalRequiresSignIn(t *testing.T) {
	app, _ := newTestApp(t, true, nil)

	for _, p := range []string{"/doctor", "/reception/queue", "/billing/invoices", "/crm/leads", "/superadmin"} {
		resp := get(t, app, p)
		assert.Equal(t, http.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/select-role", resp.Header.Get("Location"), p)
	}
}

func TestPortalShowsLoadingUntilTenantsWarm(t *testing.T) {
	app, d := newTestApp(t, false, nil)
	sid := demoLogin(t, app, "doctor")

	resp := get(t, app, "/doctor/appointments", sid)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	require.NoError(t, d.Tenants.Warm(context.Background()))
	assert.Equal(t, http.StatusOK, get(t, app, "/doctor/appointments", sid).StatusCode)
}

func TestPortalDeniesOtherRoles(t *testing.T) {
	logs := observeLogs(t)
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "doctor")

	resp := get(t, app, "/hr/employees", sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))

	denied := logs.FilterMessage("access.denied.module").All()
	require.Len(t, denied, 1)
	fields := denied[0].ContextMap()["fields"].(map[string]any)
	assert.Equal(t, domain.ModuleHR, fields["module"])
	assert.Equal(t, domain.RoleDoctor, fields["role"])

	page := get(t, app, "/unauthorized", sid)
	assert.Equal(t, http.StatusForbidden, page.StatusCode)
}

func TestDisabledModuleBlocksPortal(t *testing.T) {
	app, d := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "inventory")
	require.Equal(t, http.StatusOK, get(t, app, "/inventory/products", sid).StatusCode)

	_, err := d.Tenants.SetModules(context.Background(), repos.DefaultTenantID, map[string]bool{domain.ModuleInventory: false})
	require.NoError(t, err)

	resp := get(t, app, "/inventory/products", sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))
}

func TestSuspendedTenantLosesAccess(t *testing.T) {
	app, d := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "billing")

	_, err := d.Tenants.SetStatus(context.Background(), repos.DefaultTenantID, "suspended")
	require.NoError(t, err)

	resp := get(t, app, "/billing", sid)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))
}

func TestSuperAdminPortalNeedsSuperAdmin(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "admin")

	require.Equal(t, http.StatusOK, get(t, app, "/admin/logs", sid).StatusCode)

	resp := get(t, app, "/superadmin", sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))
}

func TestUnknownSectionAndPage(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "hr")

	section := get(t, app, "/hr/attendance", sid)
	assert.Equal(t, http.StatusOK, section.StatusCode)

	missing := get(t, app, "/hr/no-such-page", sid)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	page := get(t, app, "/nowhere")
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Contains(t, body(t, page), "Page not found")
}
