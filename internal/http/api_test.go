package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospverse/internal/domain"
	"hospverse/internal/repos"
)

type tokens struct {
	Access  string      `json:"access_token"`
	Refresh string      `json:"refresh_token"`
	User    domain.User `json:"user"`
}

func apiCall(t *testing.T, app *fiber.App, method, path, token, payload string) *http.Response {
	t.Helper()
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func apiLogin(t *testing.T, app *fiber.App, email string) tokens {
	t.Helper()
	resp := apiCall(t, app, "POST", "/api/login", "", `{"email":"`+email+`","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tk := decode[tokens](t, resp)
	require.NotEmpty(t, tk.Access)
	require.NotEmpty(t, tk.Refresh)
	return tk
}

func TestAPILoginAndMe(t *testing.T) {
	app, d := newTestApp(t, true, nil)

	bad := apiCall(t, app, "POST", "/api/login", "", `{"email":"admin@skinclinic.test","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	invalid := apiCall(t, app, "POST", "/api/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode)
	fields := decode[map[string]any](t, invalid)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")

	tk := apiLogin(t, app, "admin@skinclinic.test")
	assert.Equal(t, domain.RoleAdmin, tk.User.Role)

	me := apiCall(t, app, "GET", "/api/me", tk.Access, "")
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Equal(t, "admin@skinclinic.test", decode[domain.User](t, me).Email)

	// the profile is reread, so a rename shows without a new login
	_, err := d.Auth.Users.DB.Exec(`UPDATE users SET name='Head Admin' WHERE id='u-admin'`)
	require.NoError(t, err)
	renamed := apiCall(t, app, "GET", "/api/me", tk.Access, "")
	require.Equal(t, http.StatusOK, renamed.StatusCode)
	assert.Equal(t, "Head Admin", decode[domain.User](t, renamed).Name)

	assert.Equal(t, http.StatusUnauthorized, apiCall(t, app, "GET", "/api/me", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, apiCall(t, app, "GET", "/api/me", "garbage", "").StatusCode)
	// a refresh token is not an access token
	assert.Equal(t, http.StatusUnauthorized, apiCall(t, app, "GET", "/api/me", tk.Refresh, "").StatusCode)
}

func TestAPILogoutRevokesTokens(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	tk := apiLogin(t, app, "dr.mehta@skinclinic.test")

	refreshed := apiCall(t, app, "POST", "/api/refresh", "", `{"refresh_token":"`+tk.Refresh+`"}`)
	require.Equal(t, http.StatusOK, refreshed.StatusCode)

	out := apiCall(t, app, "POST", "/api/logout", tk.Access, "")
	assert.Equal(t, http.StatusNoContent, out.StatusCode)

	assert.Equal(t, http.StatusUnauthorized, apiCall(t, app, "GET", "/api/me", tk.Access, "").StatusCode)
	again := apiCall(t, app, "POST", "/api/refresh", "", `{"refresh_token":"`+tk.Refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, again.StatusCode)
}

func TestAPIModuleGate(t *testing.T) {
	app, d := newTestApp(t, true, nil)
	admin := apiLogin(t, app, "admin@skinclinic.test")
	front := apiLogin(t, app, "front@skinclinic.test")

	ok := apiCall(t, app, "GET", "/api/crm/leads", admin.Access, "")
	require.Equal(t, http.StatusOK, ok.StatusCode)
	assert.NotEmpty(t, decode[[]domain.Lead](t, ok))

	// receptionists have no HR grant
	denied := apiCall(t, app, "GET", "/api/hr/staff", front.Access, "")
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	assert.Equal(t, "access denied", decode[map[string]string](t, denied)["error"])

	_, err := d.Tenants.SetModules(context.Background(), repos.DefaultTenantID, map[string]bool{domain.ModuleCRM: false})
	require.NoError(t, err)
	off := apiCall(t, app, "GET", "/api/crm/leads", admin.Access, "")
	assert.Equal(t, http.StatusForbidden, off.StatusCode)
	assert.Equal(t, "Module 'crm' is not enabled for this tenant", decode[map[string]string](t, off)["error"])

	// admins are not platform owners
	assert.Equal(t, http.StatusForbidden, apiCall(t, app, "GET", "/api/super-admin/clients", admin.Access, "").StatusCode)
}

func TestAPIModuleGateWhileLoading(t *testing.T) {
	app, _ := newTestApp(t, false, nil)
	tk := apiLogin(t, app, "admin@skinclinic.test")

	resp := apiCall(t, app, "GET", "/api/billing/invoices", tk.Access, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPISuperAdminSeesEveryTenant(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	tk := apiLogin(t, app, "super@hospverse.test")

	resp := apiCall(t, app, "GET", "/api/super-admin/clients", tk.Access, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clients := decode[[]domain.Tenant](t, resp)
	assert.Len(t, clients, 4)

	toggle := apiCall(t, app, "PATCH", "/api/super-admin/clients/beautymed/modules", tk.Access, `{"modules":{"crm":true}}`)
	require.Equal(t, http.StatusOK, toggle.StatusCode)
	assert.True(t, decode[domain.Tenant](t, toggle).Modules[domain.ModuleCRM])
}

func TestAPIRolePermissionsGateModules(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	super := apiLogin(t, app, "super@hospverse.test")
	front := apiLogin(t, app, "front@skinclinic.test")

	assert.Equal(t, http.StatusForbidden, apiCall(t, app, "GET", "/api/hr/staff", front.Access, "").StatusCode)

	grant := apiCall(t, app, "PATCH", "/api/super-admin/clients/client-123/permissions", super.Access,
		`{"role":"receptionist","permissions":["dashboard","reception","hr"]}`)
	require.Equal(t, http.StatusOK, grant.StatusCode)
	g := decode[map[string]any](t, grant)
	assert.Equal(t, "receptionist", g["role"])
	assert.ElementsMatch(t, []any{"dashboard", "hr", "reception"}, g["permissions"])

	assert.Equal(t, http.StatusOK, apiCall(t, app, "GET", "/api/hr/staff", front.Access, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, apiCall(t, app, "GET", "/api/billing/invoices", front.Access, "").StatusCode)

	bad := apiCall(t, app, "PATCH", "/api/super-admin/clients/client-123/permissions", super.Access,
		`{"role":"receptionist","permissions":["super_admin"]}`)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	missing := apiCall(t, app, "PATCH", "/api/super-admin/clients/nobody/permissions", super.Access, `{"role":"doctor","permissions":[]}`)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAPICreateClient(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	super := apiLogin(t, app, "super@hospverse.test")

	resp := apiCall(t, app, "POST", "/api/super-admin/clients", super.Access,
		`{"name":"Derma One","subdomain":"dermaone","plan":"enterprise","contactName":"Dr. Sen","contactEmail":"sen@dermaone.test"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tn := decode[domain.Tenant](t, resp)
	assert.Equal(t, "client-dermaone", tn.ID)
	assert.Equal(t, 200, tn.MaxUsers)

	got := apiCall(t, app, "GET", "/api/super-admin/clients/client-dermaone", super.Access, "")
	require.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "Derma One", decode[domain.Tenant](t, got).Name)

	dup := apiCall(t, app, "POST", "/api/super-admin/clients", super.Access,
		`{"name":"Again","subdomain":"dermaone","plan":"basic","contactName":"x","contactEmail":"x@y.test"}`)
	assert.Equal(t, http.StatusBadRequest, dup.StatusCode)
	assert.Equal(t, http.StatusNotFound, apiCall(t, app, "GET", "/api/super-admin/clients/nobody", super.Access, "").StatusCode)
}

func TestAPIStockConflict(t *testing.T) {
	app, _ := newTestApp(t, true, nil)
	tk := apiLogin(t, app, "admin@skinclinic.test")

	over := apiCall(t, app, "POST", "/api/inventory/products/pr-2/deduct", tk.Access, `{"qty":500,"reason":"audit"}`)
	assert.Equal(t, http.StatusConflict, over.StatusCode)

	add := apiCall(t, app, "POST", "/api/inventory/products/pr-2/add-stock", tk.Access, `{"qty":6}`)
	require.Equal(t, http.StatusOK, add.StatusCode)
	assert.EqualValues(t, 10, decode[map[string]any](t, add)["newStock"])

	missing := apiCall(t, app, "POST", "/api/inventory/products/pr-404/add-stock", tk.Access, `{"qty":1}`)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAPITenantLookup(t *testing.T) {
	app, _ := newTestApp(t, true, nil)

	resp := apiCall(t, app, "GET", "/api/tenant?tenant=skinova", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Skinova", decode[domain.Tenant](t, resp).Name)

	assert.Equal(t, http.StatusNotFound, apiCall(t, app, "GET", "/api/tenant?tenant=nope", "", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, apiCall(t, app, "GET", "/api/unknown", "", "").StatusCode)
}
