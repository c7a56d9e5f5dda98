package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cases := map[string]Role{
		"/reception/queue":     Reception,
		"/reception":           Reception,
		"/doctor/emr":          Doctor,
		"/billing/payments":    Billing,
		"/hr/employees":        HR,
		"/inventory/stock":     Inventory,
		"/technician/history":  Technician,
		"/procedures/catalog":  Procedures,
		"/admin/users":         Admin,
		"/unknown":             Admin,
		"/":                    Admin,
		"/crm/leads":           Admin,
		"/superadmin":          Admin,
		"/doctorate-something": Doctor, // plain string prefix
	}
	for path, want := range cases {
		assert.Equal(t, want, Resolve(path), path)
	}
}

func TestEveryPrefixResolvesToItsRole(t *testing.T) {
	for _, r := range Roles {
		assert.Equal(t, r, Resolve(r.Prefix()))
		assert.Equal(t, r, Resolve(r.Prefix()+"/x/y"))
	}
}

func TestItemsMatchPortals(t *testing.T) {
	items := Reception.Items()
	require.Len(t, items, 5)
	assert.Equal(t, Item{"Queue Management", "/reception/queue", "clipboardlist"}, items[3])

	require.Len(t, Doctor.Items(), 9)
	assert.Equal(t, "EMR / SOAP", Doctor.Items()[3].Title)

	// callers get a copy
	items[0].Title = "changed"
	assert.Equal(t, "Dashboard", Reception.Items()[0].Title)
}

func TestIsActive(t *testing.T) {
	dash := Item{"Dashboard", "/reception", "home"}
	queue := Item{"Queue Management", "/reception/queue", "clipboardlist"}

	assert.True(t, IsActive(Reception, dash, "/reception"))
	assert.False(t, IsActive(Reception, dash, "/reception/queue"))
	assert.True(t, IsActive(Reception, queue, "/reception/queue"))
	assert.True(t, IsActive(Reception, queue, "/reception/queue/stream"))
	assert.False(t, IsActive(Reception, queue, "/reception/queued"))
}

func TestBuildMarksOneItem(t *testing.T) {
	sb := Build("/hr/employees/new")
	assert.Equal(t, HR, sb.Role)
	assert.Equal(t, "HR Portal", sb.Title)
	var active []string
	for _, it := range sb.Items {
		if it.Active {
			active = append(active, it.URL)
		}
	}
	assert.Equal(t, []string{"/hr/employees"}, active)
}

func TestParsePortal(t *testing.T) {
	r, ok := ParsePortal("Inventory")
	require.True(t, ok)
	assert.Equal(t, Inventory, r)
	assert.Equal(t, "Pharmacy Portal", r.DisplayName())
	assert.Equal(t, "pharmacist", r.UserRole())

	_, ok = ParsePortal("janitor")
	assert.False(t, ok)
}

func TestForUserRole(t *testing.T) {
	r, ok := ForUserRole("receptionist")
	require.True(t, ok)
	assert.Equal(t, Reception, r)
	_, ok = ForUserRole("super_admin")
	assert.False(t, ok)
}

func TestOutOfRangeRoleFallsBackToAdmin(t *testing.T) {
	assert.Equal(t, "admin", Role(42).String())
	assert.Equal(t, "/admin", Role(-1).Prefix())
}
