package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"
)

// planRevenue is the monthly list price per plan.
var planRevenue = map[string]float64{
	"enterprise":   999,
	"professional": 299,
	"basic":        99,
}

var tenantStatuses = []string{"active", "trial", "suspended", "inactive"}

// planSeats is the user allowance per plan.
var planSeats = map[string]int{
	"enterprise":   200,
	"professional": 50,
	"basic":        10,
}

// basicLocked are modules the basic plan cannot switch on.
var basicLocked = []string{domain.ModuleCRM, domain.ModuleHR, domain.ModulePayroll}

// assignableRoles are the tenant roles whose module grants can be edited.
var assignableRoles = []string{
	domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse, domain.RoleReceptionist, domain.RolePharmacist,
	domain.RoleTechnician, domain.RoleBilling, domain.RoleHR, domain.RoleProcedures,
}

type SuperAdminService struct {
	Tenants *TenantService
	Clock   Clock
}

// ClinicInput is a new client. Modules nil means the plan's defaults.
type ClinicInput struct {
	Name         string          `form:"name" json:"name" validate:"required,max=80"`
	Subdomain    string          `form:"subdomain" json:"subdomain" validate:"required,max=30,alphanum"`
	Plan         string          `form:"plan" json:"plan" validate:"required,oneof=basic professional enterprise"`
	Branch       string          `form:"branch" json:"branch" validate:"max=120"`
	ContactName  string          `form:"contact_name" json:"contactName" validate:"required,max=80"`
	ContactEmail string          `form:"contact_email" json:"contactEmail" validate:"required,email,max=100"`
	ContactPhone string          `form:"contact_phone" json:"contactPhone" validate:"omitempty,phone"`
	Modules      map[string]bool `form:"-" json:"modules"`
}

// RoleGrant is one role's module list for a client.
type RoleGrant struct {
	Role    string   `json:"role"`
	Modules []string `json:"permissions"`
}

type ClientFilter struct {
	Plan   string
	Status string
	Q      string
}

type PlatformStats struct {
	TotalClients   int            `json:"totalClients"`
	ActiveClients  int            `json:"activeClients"`
	TrialClients   int            `json:"trialClients"`
	TotalUsers     int            `json:"totalUsers"`
	MonthlyRevenue float64        `json:"monthlyRevenue"`
	ByPlan         map[string]int `json:"byPlan"`
}

// Clients lists tenants ordered by name.
func (s *SuperAdminService) Clients(f ClientFilter) []*domain.Tenant {
	all := s.Tenants.List()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return listing.Apply(all,
		listing.Equal(f.Plan, func(t *domain.Tenant) string { return t.Plan }),
		listing.Equal(f.Status, func(t *domain.Tenant) string { return t.Status }),
		listing.Search(f.Q,
			func(t *domain.Tenant) string { return t.Name },
			func(t *domain.Tenant) string { return t.Subdomain },
			func(t *domain.Tenant) string { return t.ContactEmail },
		),
	)
}

// Client returns one tenant by id.
func (s *SuperAdminService) Client(id string) (*domain.Tenant, error) {
	id, ok := validate.ID(id)
	if !ok {
		return nil, ErrTenantNotFound
	}
	return s.Tenants.Get(id)
}

// CreateClinic registers a client as active for one year. The subdomain is
// folded to lower case and must be unused.
func (s *SuperAdminService) CreateClinic(ctx context.Context, in ClinicInput) (*domain.Tenant, error) {
	in.Name = validate.CleanText(in.Name)
	in.ContactName = validate.CleanText(in.ContactName)
	in.Branch = validate.CleanText(in.Branch)
	in.Subdomain = strings.ToLower(strings.TrimSpace(in.Subdomain))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	for m := range in.Modules {
		if !slices.Contains(domain.AllModules, m) {
			return nil, validate.FieldErrors{"modules": fmt.Sprintf("Unknown module %q", m)}
		}
	}
	if _, err := s.Tenants.BySubdomain(in.Subdomain); err == nil {
		return nil, validate.FieldErrors{"subdomain": "That subdomain is taken"}
	}

	mods := domain.DefaultModules()
	if in.Modules != nil {
		for _, m := range domain.AllModules {
			mods[m] = in.Modules[m]
		}
	}
	mods[domain.ModuleSuperAdmin] = false
	if in.Plan == "basic" {
		for _, m := range basicLocked {
			mods[m] = false
		}
	}
	branch := in.Branch
	if branch == "" {
		branch = "Main Branch"
	}
	now := s.Clock.now()
	t := &domain.Tenant{
		ID: "client-" + in.Subdomain, Name: in.Name, Subdomain: in.Subdomain, Plan: in.Plan, Status: "active",
		Branch: branch, ContactName: in.ContactName, ContactEmail: in.ContactEmail, ContactPhone: in.ContactPhone,
		MaxUsers: planSeats[in.Plan], ExpiresAt: now.AddDate(1, 0, 0).Format(dateLayout),
		Modules: mods, RolePermissions: domain.DefaultRolePermissions(),
	}
	created, err := s.Tenants.Create(ctx, t)
	if errors.Is(err, repos.ErrDuplicate) {
		return nil, validate.FieldErrors{"subdomain": "That subdomain is taken"}
	}
	return created, err
}

// AssignRolePermissions replaces the modules one role is granted at a client.
// The super_admin role and module are not assignable.
func (s *SuperAdminService) AssignRolePermissions(ctx context.Context, id string, g RoleGrant) (*domain.Tenant, error) {
	if !slices.Contains(assignableRoles, g.Role) {
		return nil, validate.FieldErrors{"role": "Please pick a valid role"}
	}
	mods := make([]string, 0, len(g.Modules))
	for _, m := range domain.AllModules {
		if slices.Contains(g.Modules, m) {
			mods = append(mods, m)
		}
	}
	for _, m := range g.Modules {
		if m == domain.ModuleSuperAdmin || !slices.Contains(domain.AllModules, m) {
			return nil, validate.FieldErrors{"permissions": fmt.Sprintf("Module %q cannot be granted", m)}
		}
	}
	if _, err := s.Client(id); err != nil {
		return nil, err
	}
	return s.Tenants.SetRolePermissions(ctx, id, g.Role, mods)
}

// Roles lists the roles whose grants can be edited.
func (s *SuperAdminService) Roles() []string { return slices.Clone(assignableRoles) }

// ToggleModules switches modules for a client. Unknown module names are rejected.
func (s *SuperAdminService) ToggleModules(ctx context.Context, id string, changes map[string]bool) (*domain.Tenant, error) {
	for m := range changes {
		if !slices.Contains(domain.AllModules, m) {
			return nil, validate.FieldErrors{"modules": fmt.Sprintf("Unknown module %q", m)}
		}
	}
	return s.Tenants.SetModules(ctx, id, changes)
}

func (s *SuperAdminService) SetStatus(ctx context.Context, id, status string) (*domain.Tenant, error) {
	if !slices.Contains(tenantStatuses, status) {
		return nil, validate.FieldErrors{"status": "Please pick a valid status"}
	}
	if _, err := s.Client(id); err != nil {
		return nil, err
	}
	return s.Tenants.SetStatus(ctx, id, status)
}

func (s *SuperAdminService) Stats() PlatformStats {
	st := PlatformStats{ByPlan: map[string]int{}}
	for _, t := range s.Tenants.List() {
		st.TotalClients++
		st.TotalUsers += t.ActiveUsers
		st.ByPlan[t.Plan]++
		switch t.Status {
		case "active":
			st.ActiveClients++
			st.MonthlyRevenue += planRevenue[t.Plan]
		case "trial":
			st.TrialClients++
		}
	}
	return st
}
