package services

import (
	"context"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"hospverse/internal/domain"
	"hospverse/internal/guard"
	"hospverse/internal/repos"
)

// TenantService serves tenants from an in-memory snapshot. The snapshot is
// swapped as a whole; tenants handed out are never mutated afterwards.
type TenantService struct {
	Repo *repos.TenantRepo
	// DevSubdomain is used for localhost requests without ?tenant=.
	DevSubdomain string

	mu    sync.RWMutex
	byID  map[string]*domain.Tenant
	bySub map[string]*domain.Tenant
	ready atomic.Bool
}

func NewTenantService(repo *repos.TenantRepo) *TenantService {
	return &TenantService{Repo: repo, DevSubdomain: "skinclinic"}
}

// Warm loads every tenant. Until it succeeds the service reports Loading.
func (s *TenantService) Warm(ctx context.Context) error {
	all, err := s.Repo.All(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Tenant, len(all))
	bySub := make(map[string]*domain.Tenant, len(all))
	for i := range all {
		t := &all[i]
		byID[t.ID] = t
		bySub[strings.ToLower(t.Subdomain)] = t
	}
	s.mu.Lock()
	s.byID, s.bySub = byID, bySub
	s.mu.Unlock()
	s.ready.Store(true)
	return nil
}

func (s *TenantService) Loading() bool { return !s.ready.Load() }

func (s *TenantService) Get(id string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, ErrTenantNotFound
}

func (s *TenantService) List() []*domain.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	return out
}

// ResolveHost maps a request host onto a tenant by its first label. Local
// hosts use the tenant query value, falling back to DevSubdomain.
func (s *TenantService) ResolveHost(host, queryTenant string) (*domain.Tenant, error) {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	var sub string
	if host == "localhost" || host == "127.0.0.1" || host == "example.com" || host == "" {
		sub = queryTenant
		if sub == "" {
			sub = s.DevSubdomain
		}
	} else {
		sub = strings.SplitN(host, ".", 2)[0]
	}
	return s.BySubdomain(sub)
}

func (s *TenantService) BySubdomain(sub string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.bySub[strings.ToLower(sub)]; ok {
		return t, nil
	}
	return nil, ErrTenantNotFound
}

// SetModules replaces the tenant's module switches and reloads the snapshot.
func (s *TenantService) SetModules(ctx context.Context, id string, changes map[string]bool) (*domain.Tenant, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	next := maps.Clone(cur.Modules)
	if next == nil {
		next = map[string]bool{}
	}
	maps.Copy(next, changes)
	if err := s.Repo.UpdateModules(ctx, id, next); err != nil {
		return nil, err
	}
	if err := s.Warm(ctx); err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *TenantService) SetStatus(ctx context.Context, id, status string) (*domain.Tenant, error) {
	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	if err := s.Warm(ctx); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Create stores a new tenant and reloads the snapshot.
func (s *TenantService) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	if err := s.Warm(ctx); err != nil {
		return nil, err
	}
	return s.Get(t.ID)
}

// SetRolePermissions replaces one role's module list and reloads the snapshot.
func (s *TenantService) SetRolePermissions(ctx context.Context, id, role string, modules []string) (*domain.Tenant, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	next := maps.Clone(cur.RolePermissions)
	if next == nil {
		next = map[string][]string{}
	}
	next[role] = modules
	if err := s.Repo.UpdatePermissions(ctx, id, next); err != nil {
		return nil, err
	}
	if err := s.Warm(ctx); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Access binds a user to the tenant snapshot for guard decisions.
func (s *TenantService) Access(u *domain.User) guard.ModuleAccess {
	return tenantAccess{svc: s, user: u}
}

type tenantAccess struct {
	svc  *TenantService
	user *domain.User
}

func (a tenantAccess) Loading() bool { return a.svc.Loading() }

func (a tenantAccess) HasModuleAccess(module string) bool {
	if a.user == nil {
		return false
	}
	if a.user.IsSuperAdmin() {
		return true
	}
	t, err := a.svc.Get(a.user.ClientID)
	if err != nil || !Operating(t) {
		return false
	}
	return t.HasModuleAccess(a.user.Role, module)
}

// Operating reports whether the tenant may use the product at all.
func Operating(t *domain.Tenant) bool {
	return t != nil && (t.Status == "active" || t.Status == "trial")
}
