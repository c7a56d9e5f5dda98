package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospverse/internal/http/handlers"
)

func TestPortalPagesRender(t *testing.T) {
	app, _ := newTestApp(t, true, func(d *handlers.Deps) { d.LoginMax = 50 })

	pages := map[string][]string{
		"doctor":     {"/doctor", "/doctor/appointments", "/doctor/patients", "/doctor/emr", "/doctor/procedures"},
		"reception":  {"/reception", "/reception/appointments", "/reception/register", "/reception/queue", "/reception/checkin"},
		"billing":    {"/billing", "/billing/invoices", "/billing/payments", "/billing/invoices?status=paid"},
		"hr":         {"/hr", "/hr/employees", "/hr/payroll", "/hr/employees?role=doctor&page=1"},
		"inventory":  {"/inventory", "/inventory/products", "/inventory/stock", "/inventory/products?stock=low"},
		"technician": {"/technician", "/technician/procedures", "/technician/history", "/technician/photos"},
		"procedures": {"/procedures", "/procedures/catalog"},
		"admin": {
			"/admin", "/admin/users", "/admin/logs", "/admin/reports", "/admin/settings", "/admin/branches",
			"/crm", "/crm/leads", "/crm/leads/ld-1",
		},
	}
	for portal, paths := range pages {
		sid := demoLogin(t, app, portal)
		for _, p := range paths {
			resp := get(t, app, p, sid)
			assert.Equal(t, http.StatusOK, resp.StatusCode, p)
		}
	}
}

func TestSuperAdminPageToggles(t *testing.T) {
	app, d := newTestApp(t, true, func(d *handlers.Deps) { d.AuthHandler.DemoMode = false })
	tok := csrfToken(t, app)
	login := postForm(t, app, "/login?role=admin", tok, url.Values{"email": {"super@hospverse.test"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusFound, login.StatusCode)
	assert.Equal(t, "/superadmin", login.Header.Get("Location"))
	sid := cookie(login, "sid")

	page := get(t, app, "/superadmin", sid)
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, body(t, page), "BeautyMed")

	resp := postForm(t, app, "/superadmin/clients/beautymed/status", tok, url.Values{"status": {"suspended"}}, sid)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	bm, err := d.Tenants.Get("beautymed")
	require.NoError(t, err)
	assert.Equal(t, "suspended", bm.Status)

	bad := postForm(t, app, "/superadmin/clients/beautymed/status", tok, url.Values{"status": {"deleted"}}, sid)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
}

func TestSuperAdminCreatesClientAndGrantsRoles(t *testing.T) {
	app, d := newTestApp(t, true, func(d *handlers.Deps) { d.AuthHandler.DemoMode = false })
	tok := csrfToken(t, app)
	login := postForm(t, app, "/login?role=admin", tok, url.Values{"email": {"super@hospverse.test"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusFound, login.StatusCode)
	sid := cookie(login, "sid")

	bad := postForm(t, app, "/superadmin/clients", tok, url.Values{
		"name": {"Glow Derma"}, "subdomain": {"skinova"}, "plan": {"basic"},
		"contact_name": {"Dr. Meera Iyer"}, "contact_email": {"meera@glowderma.test"},
	}, sid)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
	assert.Contains(t, body(t, bad), "That subdomain is taken")

	created := postForm(t, app, "/superadmin/clients", tok, url.Values{
		"name": {"Glow Derma"}, "subdomain": {"glowderma"}, "plan": {"professional"},
		"contact_name": {"Dr. Meera Iyer"}, "contact_email": {"meera@glowderma.test"},
		"mod_dashboard": {"on"}, "mod_reception": {"on"},
	}, sid)
	require.Equal(t, http.StatusFound, created.StatusCode)
	assert.Equal(t, "/superadmin/clients/client-glowderma", created.Header.Get("Location"))

	detail := get(t, app, "/superadmin/clients/client-glowderma", sid)
	require.Equal(t, http.StatusOK, detail.StatusCode)
	html := body(t, detail)
	assert.Contains(t, html, "Glow Derma")
	assert.Contains(t, html, "Role permissions")

	granted := postForm(t, app, "/superadmin/clients/client-glowderma/permissions", tok, url.Values{
		"role": {"receptionist"}, "mod_reception": {"on"}, "mod_billing": {"on"},
	}, sid)
	require.Equal(t, http.StatusFound, granted.StatusCode)
	tn, err := d.Tenants.Get("client-glowderma")
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "reception"}, tn.RolePermissions["receptionist"])
	assert.False(t, tn.ModuleEnabled("billing"), "granting does not enable the module")

	badRole := postForm(t, app, "/superadmin/clients/client-glowderma/permissions", tok, url.Values{"role": {"super_admin"}}, sid)
	assert.Equal(t, http.StatusUnprocessableEntity, badRole.StatusCode)

	assert.Equal(t, http.StatusNotFound, get(t, app, "/superadmin/clients/nobody", sid).StatusCode)
}

func TestHRAddEmployeeValidation(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "hr")
	tok := csrfToken(t, app)

	bad := postForm(t, app, "/hr/employees", tok, url.Values{"name": {""}, "email": {"not-an-email"}, "role": {"doctor"}}, sid)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
	assert.Contains(t, body(t, bad), "field-error")

	ok := postForm(t, app, "/hr/employees", tok, url.Values{
		"name": {"Neha Verma"}, "email": {"neha@skinclinic.test"}, "role": {"nurse"},
		"branch": {"Downtown"}, "join_date": {"2025-01-06"}, "salary": {"38000"},
	}, sid)
	require.Equal(t, http.StatusFound, ok.StatusCode)
	assert.Contains(t, body(t, get(t, app, "/hr/employees?q=neha", sid)), "Neha Verma")
}

func TestBillingInvoiceLifecycle(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	sid := demoLogin(t, app, "billing")
	tok := csrfToken(t, app)

	created := postForm(t, app, "/billing/invoices", tok, url.Values{
		"patient_name": {"Lifecycle Patient"}, "treatment": {"Chemical Peel"}, "amount": {"3000"},
	}, sid)
	require.Equal(t, http.StatusFound, created.StatusCode)

	list := body(t, get(t, app, "/billing/invoices?q=Lifecycle", sid))
	assert.Contains(t, list, "Lifecycle Patient")
	assert.Contains(t, list, "pending")

	invalid := postForm(t, app, "/billing/invoices", tok, url.Values{"patient_name": {"X"}, "treatment": {"Y"}, "amount": {"0"}}, sid)
	assert.Equal(t, http.StatusUnprocessableEntity, invalid.StatusCode)
}
