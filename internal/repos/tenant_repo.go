package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// DefaultTenantID is the tenant demo users belong to.
const DefaultTenantID = "client-123"

type TenantRepo struct{ db *sqlx.DB }

func NewTenantRepo(db *sqlx.DB) *TenantRepo { return &TenantRepo{db: db} }

const tenantCols = `id,name,subdomain,logo,plan,status,branch,contact_name,contact_email,contact_phone,
  active_users,max_users,modules_json,role_permissions_json,COALESCE(created_at,'') AS created_at,expires_at`

func decodeTenant(t *domain.Tenant) error {
	t.Modules = map[string]bool{}
	t.RolePermissions = map[string][]string{}
	if err := json.Unmarshal([]byte(t.ModulesJSON), &t.Modules); err != nil {
		return fmt.Errorf("tenant %s modules: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(t.PermissionsJSON), &t.RolePermissions); err != nil {
		return fmt.Errorf("tenant %s permissions: %w", t.ID, err)
	}
	return nil
}

func encodeTenant(t *domain.Tenant) error {
	m, err := json.Marshal(t.Modules)
	if err != nil {
		return err
	}
	p, err := json.Marshal(t.RolePermissions)
	if err != nil {
		return err
	}
	t.ModulesJSON, t.PermissionsJSON = string(m), string(p)
	return nil
}

func (r *TenantRepo) All(ctx context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	if err := r.db.SelectContext(ctx, &out, `SELECT `+tenantCols+` FROM tenants ORDER BY name`); err != nil {
		return nil, err
	}
	for i := range out {
		if err := decodeTenant(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *TenantRepo) ByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := r.db.GetContext(ctx, &t, `SELECT `+tenantCols+` FROM tenants WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	if err := decodeTenant(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts the tenant or replaces every column of an existing one.
func (r *TenantRepo) Upsert(ctx context.Context, t *domain.Tenant) error {
	if err := encodeTenant(t); err != nil {
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tenants(id,name,subdomain,logo,plan,status,branch,contact_name,contact_email,contact_phone,
		  active_users,max_users,modules_json,role_permissions_json,expires_at)
		VALUES(:id,:name,:subdomain,:logo,:plan,:status,:branch,:contact_name,:contact_email,:contact_phone,
		  :active_users,:max_users,:modules_json,:role_permissions_json,:expires_at)
		ON CONFLICT(id) DO UPDATE SET
		  name=excluded.name, subdomain=excluded.subdomain, logo=excluded.logo, plan=excluded.plan,
		  status=excluded.status, branch=excluded.branch, contact_name=excluded.contact_name,
		  contact_email=excluded.contact_email, contact_phone=excluded.contact_phone,
		  active_users=excluded.active_users, max_users=excluded.max_users,
		  modules_json=excluded.modules_json, role_permissions_json=excluded.role_permissions_json,
		  expires_at=excluded.expires_at`, t)
	return err
}

// Create inserts a new tenant. A taken id or subdomain is ErrDuplicate.
func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	if err := encodeTenant(t); err != nil {
		return err
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tenants(id,name,subdomain,logo,plan,status,branch,contact_name,contact_email,contact_phone,
		  active_users,max_users,modules_json,role_permissions_json,expires_at)
		VALUES(:id,:name,:subdomain,:logo,:plan,:status,:branch,:contact_name,:contact_email,:contact_phone,
		  :active_users,:max_users,:modules_json,:role_permissions_json,:expires_at)`, t)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

func (r *TenantRepo) UpdatePermissions(ctx context.Context, id string, perms map[string][]string) error {
	b, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return r.exec1(ctx, `UPDATE tenants SET role_permissions_json=? WHERE id=?`, string(b), id)
}

func (r *TenantRepo) UpdateModules(ctx context.Context, id string, modules map[string]bool) error {
	b, err := json.Marshal(modules)
	if err != nil {
		return err
	}
	return r.exec1(ctx, `UPDATE tenants SET modules_json=? WHERE id=?`, string(b), id)
}

func (r *TenantRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.exec1(ctx, `UPDATE tenants SET status=? WHERE id=?`, status, id)
}

func (r *TenantRepo) exec1(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// tenantFile is the YAML layout of configs/tenants.yaml. Modules listed there
// override the default entitlement set; omitted ones stay enabled.
type tenantFile struct {
	Tenants []struct {
		ID              string              `yaml:"id"`
		Name            string              `yaml:"name"`
		Subdomain       string              `yaml:"subdomain"`
		Plan            string              `yaml:"plan"`
		Status          string              `yaml:"status"`
		Branch          string              `yaml:"branch"`
		ContactName     string              `yaml:"contact_name"`
		ContactEmail    string              `yaml:"contact_email"`
		ContactPhone    string              `yaml:"contact_phone"`
		MaxUsers        int                 `yaml:"max_users"`
		ExpiresAt       string              `yaml:"expires_at"`
		Modules         map[string]bool     `yaml:"modules"`
		RolePermissions map[string][]string `yaml:"role_permissions"`
	} `yaml:"tenants"`
}

// LoadTenantsYAML reads tenant definitions, filling defaults for anything omitted.
func LoadTenantsYAML(path string) ([]domain.Tenant, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f tenantFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]domain.Tenant, 0, len(f.Tenants))
	for _, y := range f.Tenants {
		if y.ID == "" || y.Name == "" {
			return nil, fmt.Errorf("parse %s: tenant needs id and name", path)
		}
		t := domain.Tenant{
			ID: y.ID, Name: y.Name, Subdomain: y.Subdomain, Plan: y.Plan, Status: y.Status,
			Branch: y.Branch, ContactName: y.ContactName, ContactEmail: y.ContactEmail,
			ContactPhone: y.ContactPhone, MaxUsers: y.MaxUsers, ExpiresAt: y.ExpiresAt,
			Modules: domain.DefaultModules(), RolePermissions: domain.DefaultRolePermissions(),
		}
		if t.Subdomain == "" {
			t.Subdomain = t.ID
		}
		if t.Plan == "" {
			t.Plan = "basic"
		}
		if t.Status == "" {
			t.Status = "active"
		}
		if t.MaxUsers == 0 {
			t.MaxUsers = 10
		}
		for m, on := range y.Modules {
			t.Modules[m] = on
		}
		for role, mods := range y.RolePermissions {
			t.RolePermissions[role] = mods
		}
		out = append(out, t)
	}
	return out, nil
}

func builtinTenants() []domain.Tenant {
	with := func(off ...string) map[string]bool {
		m := domain.DefaultModules()
		for _, o := range off {
			m[o] = false
		}
		return m
	}
	return []domain.Tenant{
		{
			ID: DefaultTenantID, Name: "SkinClinic Pro", Subdomain: "skinclinic", Plan: "professional", Status: "active",
			Branch: "Main Branch - Downtown Medical Center", ContactName: "Clinic Admin", ContactEmail: "admin@skinclinic.test",
			ActiveUsers: 6, MaxUsers: 50, Modules: with(),
		},
		{
			ID: "skinova", Name: "Skinova", Subdomain: "skinova", Plan: "professional", Status: "active",
			Branch: "Bandra West", ContactName: "Dr. Priya Sharma", ContactEmail: "admin@skinova.test",
			ActiveUsers: 12, MaxUsers: 50, Modules: with(),
		},
		{
			ID: "beautymed", Name: "BeautyMed", Subdomain: "beautymed", Plan: "basic", Status: "active",
			Branch: "Koramangala", ContactName: "Dr. Rajesh Kumar", ContactEmail: "admin@beautymed.test",
			ActiveUsers: 5, MaxUsers: 10, Modules: with(domain.ModuleCRM, domain.ModuleHR, domain.ModulePayroll),
		},
		{
			ID: "lasertech", Name: "LaserTech", Subdomain: "lasertech", Plan: "trial", Status: "trial",
			Branch: "Connaught Place", ContactName: "Dr. Anjali Singh", ContactEmail: "admin@lasertech.test",
			ActiveUsers: 2, MaxUsers: 5, Modules: with(domain.ModuleHR, domain.ModulePayroll),
		},
	}
}

// seedTenants inserts the built-in tenants if missing; edits made later survive restarts.
func seedTenants(db *sqlx.DB) error {
	for _, t := range builtinTenants() {
		t.RolePermissions = domain.DefaultRolePermissions()
		if err := encodeTenant(&t); err != nil {
			return err
		}
		if _, err := db.NamedExec(`
			INSERT INTO tenants(id,name,subdomain,logo,plan,status,branch,contact_name,contact_email,contact_phone,
			  active_users,max_users,modules_json,role_permissions_json,expires_at)
			VALUES(:id,:name,:subdomain,:logo,:plan,:status,:branch,:contact_name,:contact_email,:contact_phone,
			  :active_users,:max_users,:modules_json,:role_permissions_json,:expires_at)
			ON CONFLICT(id) DO NOTHING`, &t); err != nil {
			return err
		}
	}
	return nil
}
