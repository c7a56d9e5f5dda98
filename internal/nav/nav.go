// Package nav maps URL paths onto portal roles and their sidebar entries.
package nav

import (
	"strings"

	"hospverse/internal/domain"
)

// Role is a dashboard portal. The set is closed; Admin is the fallback.
type Role int

const (
	Admin Role = iota
	Doctor
	Reception
	Billing
	HR
	Inventory
	Technician
	Procedures
)

// Roles lists every portal in the order the role picker shows them.
var Roles = []Role{Doctor, Reception, Billing, HR, Admin, Inventory, Technician, Procedures}

type Item struct {
	Title string
	URL   string
	Icon  string
}

type portal struct {
	key      string
	title    string
	icon     string
	module   string
	userRole string
	blurb    string
	items    []Item
}

var portals = [...]portal{
	Admin: {
		key: "admin", title: "Admin Portal", icon: "settings", module: domain.ModuleAdmin, userRole: domain.RoleAdmin,
		blurb: "System settings, users and branches",
		items: []Item{
			{"Dashboard", "/admin", "home"},
			{"Users & Roles", "/admin/users", "users2"},
			{"Settings", "/admin/settings", "settings"},
			{"Reports", "/admin/reports", "barchart3"},
			{"Multi-branch", "/admin/branches", "building2"},
		},
	},
	Doctor: {
		key: "doctor", title: "Doctor Portal", icon: "stethoscope", module: domain.ModuleDoctor, userRole: domain.RoleDoctor,
		blurb: "Appointments, EMR and treatment records",
		items: []Item{
			{"Dashboard", "/doctor", "home"},
			{"Appointments", "/doctor/appointments", "calendar"},
			{"Patients", "/doctor/patients", "users2"},
			{"EMR / SOAP", "/doctor/emr", "filetext"},
			{"Procedures", "/doctor/procedures", "scissors"},
			{"Teleconsult", "/doctor/teleconsult", "stethoscope"},
			{"Messages", "/doctor/messages", "usercheck"},
			{"Analytics", "/doctor/analytics", "barchart3"},
			{"Profile", "/doctor/profile", "user"},
		},
	},
	Reception: {
		key: "reception", title: "Reception Portal", icon: "usercheck", module: domain.ModuleReception, userRole: domain.RoleReceptionist,
		blurb: "Bookings, walk-ins and the patient queue",
		items: []Item{
			{"Dashboard", "/reception", "home"},
			{"Appointments", "/reception/appointments", "calendar"},
			{"Patient Register", "/reception/register", "users2"},
			{"Queue Management", "/reception/queue", "clipboardlist"},
			{"Check-in/out", "/reception/checkin", "usercheck"},
		},
	},
	Billing: {
		key: "billing", title: "Billing Portal", icon: "creditcard", module: domain.ModuleBilling, userRole: domain.RoleBilling,
		blurb: "Invoices, payments and refunds",
		items: []Item{
			{"Dashboard", "/billing", "home"},
			{"Invoices", "/billing/invoices", "filetext"},
			{"Payments", "/billing/payments", "creditcard"},
			{"Reports", "/billing/reports", "barchart3"},
		},
	},
	HR: {
		key: "hr", title: "HR Portal", icon: "users2", module: domain.ModuleHR, userRole: domain.RoleHR,
		blurb: "Staff directory, attendance and payroll",
		items: []Item{
			{"Dashboard", "/hr", "home"},
			{"Employees", "/hr/employees", "users2"},
			{"Attendance", "/hr/attendance", "calendar"},
			{"Payroll", "/hr/payroll", "creditcard"},
			{"Performance", "/hr/performance", "barchart3"},
		},
	},
	Inventory: {
		key: "inventory", title: "Pharmacy Portal", icon: "package", module: domain.ModuleInventory, userRole: domain.RolePharmacist,
		blurb: "Products, stock and purchase orders",
		items: []Item{
			{"Dashboard", "/inventory", "home"},
			{"Products", "/inventory/products", "package"},
			{"Stock Management", "/inventory/stock", "barchart3"},
			{"Purchase Orders", "/inventory/orders", "filetext"},
			{"Reports", "/inventory/reports", "barchart3"},
		},
	},
	Technician: {
		key: "technician", title: "Technician Portal", icon: "wrench", module: domain.ModuleTechnician, userRole: domain.RoleTechnician,
		blurb: "Procedure sessions and photo records",
		items: []Item{
			{"Dashboard", "/technician", "home"},
			{"Procedures", "/technician/procedures", "wrench"},
			{"Equipment", "/technician/equipment", "settings"},
			{"Photo Manager", "/technician/photos", "usercheck"},
			{"Session History", "/technician/history", "filetext"},
		},
	},
	Procedures: {
		key: "procedures", title: "Procedures Portal", icon: "scissors", module: domain.ModuleProcedures, userRole: domain.RoleProcedures,
		blurb: "Treatment catalog and protocols",
		items: []Item{
			{"Dashboard", "/procedures", "home"},
			{"Procedure Catalog", "/procedures/catalog", "scissors"},
			{"Protocol Builder", "/procedures/builder", "settings"},
			{"Templates", "/procedures/templates", "filetext"},
		},
	},
}

func (r Role) valid() bool { return r >= Admin && int(r) < len(portals) }

func (r Role) p() portal {
	if !r.valid() {
		return portals[Admin]
	}
	return portals[r]
}

// String is the portal key used in URLs and ?role= values.
func (r Role) String() string { return r.p().key }

// Prefix is the portal's URL root, which is also its dashboard.
func (r Role) Prefix() string { return "/" + r.p().key }

func (r Role) Dashboard() string   { return r.Prefix() }
func (r Role) DisplayName() string { return r.p().title }
func (r Role) Icon() string        { return r.p().icon }
func (r Role) Blurb() string       { return r.p().blurb }

// Module is the tenant module that gates every page of the portal.
func (r Role) Module() string { return r.p().module }

// UserRole is the role a demo user signing into this portal receives.
func (r Role) UserRole() string { return r.p().userRole }

// Items returns a copy of the portal's ordered nav list.
func (r Role) Items() []Item {
	src := r.p().items
	out := make([]Item, len(src))
	copy(out, src)
	return out
}

// ParsePortal parses a portal key such as "doctor" or "inventory".
func ParsePortal(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := range portals {
		if portals[i].key == s {
			return Role(i), true
		}
	}
	return Admin, false
}

// ForUserRole finds the portal whose demo role is userRole.
func ForUserRole(userRole string) (Role, bool) {
	for i := range portals {
		if portals[i].userRole == userRole {
			return Role(i), true
		}
	}
	return Admin, false
}

// Resolve picks the portal whose prefix is the longest string prefix of path.
// Unknown paths fall back to Admin.
func Resolve(path string) Role {
	best, bestLen := Admin, 0
	for i := range portals {
		r := Role(i)
		if r == Admin {
			continue
		}
		pre := r.Prefix()
		if strings.HasPrefix(path, pre) && len(pre) > bestLen {
			best, bestLen = r, len(pre)
		}
	}
	return best
}

// IsActive marks the item for path. The portal root needs an exact match so the
// Dashboard entry is not lit on every page; other items match whole path segments.
func IsActive(r Role, item Item, path string) bool {
	if item.URL == r.Prefix() {
		return path == item.URL
	}
	return path == item.URL || strings.HasPrefix(path, item.URL+"/")
}

type ActiveItem struct {
	Item
	Active bool
}

// Sidebar is what the layout template renders.
type Sidebar struct {
	Role  Role
	Title string
	Icon  string
	Items []ActiveItem
}

func Build(path string) Sidebar {
	r := Resolve(path)
	sb := Sidebar{Role: r, Title: r.DisplayName(), Icon: r.Icon()}
	for _, it := range r.p().items {
		sb.Items = append(sb.Items, ActiveItem{Item: it, Active: IsActive(r, it, path)})
	}
	return sb
}

// Find returns the item whose URL equals path exactly.
func Find(r Role, path string) (Item, bool) {
	for _, it := range r.p().items {
		if it.URL == path {
			return it, true
		}
	}
	return Item{}, false
}
