package domain

import "slices"

// Modules a tenant can be entitled to.
const (
	ModuleDashboard    = "dashboard"
	ModulePatients     = "patients"
	ModuleAppointments = "appointments"
	ModuleInventory    = "inventory"
	ModuleBilling      = "billing"
	ModuleCRM          = "crm"
	ModuleHR           = "hr"
	ModuleReports      = "reports"
	ModuleAdmin        = "admin"
	ModuleReception    = "reception"
	ModuleDoctor       = "doctor"
	ModulePhotoManager = "photo-manager"
	ModuleTechnician   = "technician"
	ModuleProcedures   = "procedures"
	ModulePayroll      = "payroll"
	ModuleSuperAdmin   = "super_admin"
)

// AllModules lists every module in display order.
var AllModules = []string{
	ModuleDashboard, ModulePatients, ModuleAppointments, ModuleInventory, ModuleBilling,
	ModuleCRM, ModuleHR, ModuleReports, ModuleAdmin, ModuleReception, ModuleDoctor,
	ModulePhotoManager, ModuleTechnician, ModuleProcedures, ModulePayroll, ModuleSuperAdmin,
}

type Tenant struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"tenantName"`
	Subdomain    string `db:"subdomain" json:"subdomain"`
	Logo         string `db:"logo" json:"logo,omitempty"`
	Plan         string `db:"plan" json:"plan"`     // basic|professional|enterprise|trial
	Status       string `db:"status" json:"status"` // active|inactive|trial|suspended
	Branch       string `db:"branch" json:"currentBranch"`
	ContactName  string `db:"contact_name" json:"contactName,omitempty"`
	ContactEmail string `db:"contact_email" json:"contactEmail,omitempty"`
	ContactPhone string `db:"contact_phone" json:"contactPhone,omitempty"`
	ActiveUsers  int    `db:"active_users" json:"activeUsers"`
	MaxUsers     int    `db:"max_users" json:"maxUsers"`
	CreatedAt    string `db:"created_at" json:"createdAt"`
	ExpiresAt    string `db:"expires_at" json:"expiresAt,omitempty"`

	ModulesJSON     string `db:"modules_json" json:"-"`
	PermissionsJSON string `db:"role_permissions_json" json:"-"`

	Modules         map[string]bool     `db:"-" json:"modulesEnabled"`
	RolePermissions map[string][]string `db:"-" json:"rolePermissions"`
}

// ModuleEnabled reports whether the tenant has the module switched on.
func (t *Tenant) ModuleEnabled(module string) bool {
	return t != nil && t.Modules[module]
}

// HasModuleAccess applies the entitlement rule: super_admin always passes,
// everyone else needs the module enabled and listed for their role.
// A role with no permission list is denied.
func (t *Tenant) HasModuleAccess(role, module string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	if !t.ModuleEnabled(module) {
		return false
	}
	return slices.Contains(t.RolePermissions[role], module)
}

// EnabledModules returns the enabled module names in display order.
func (t *Tenant) EnabledModules() []string {
	var out []string
	for _, m := range AllModules {
		if t.ModuleEnabled(m) {
			out = append(out, m)
		}
	}
	return out
}

// DefaultModules is the entitlement set of a fresh professional tenant.
func DefaultModules() map[string]bool {
	m := make(map[string]bool, len(AllModules))
	for _, name := range AllModules {
		m[name] = true
	}
	return m
}

// DefaultRolePermissions is the role to module table new tenants start with.
func DefaultRolePermissions() map[string][]string {
	var adminMods []string
	for _, m := range AllModules {
		if m != ModuleSuperAdmin {
			adminMods = append(adminMods, m)
		}
	}
	return map[string][]string{
		RoleSuperAdmin:   slices.Clone(AllModules),
		RoleAdmin:        adminMods,
		RoleDoctor:       {ModuleDashboard, ModulePatients, ModuleAppointments, ModuleReports, ModuleDoctor, ModulePhotoManager},
		RoleNurse:        {ModuleDashboard, ModulePatients, ModuleAppointments},
		RoleReceptionist: {ModuleDashboard, ModulePatients, ModuleAppointments, ModuleBilling, ModuleReception},
		RolePharmacist:   {ModuleDashboard, ModulePatients, ModuleInventory},
		RoleTechnician:   {ModuleDashboard, ModuleTechnician, ModulePhotoManager},
		RoleBilling:      {ModuleDashboard, ModuleBilling, ModuleReports},
		RoleHR:           {ModuleDashboard, ModuleHR, ModulePayroll},
		RoleProcedures:   {ModuleDashboard, ModuleProcedures, ModuleTechnician},
	}
}
