package domain

import "testing"

func TestHasModuleAccess(t *testing.T) {
	tn := &Tenant{
		Modules:         map[string]bool{ModuleDoctor: true, ModuleHR: false, ModuleReception: true},
		RolePermissions: map[string][]string{RoleDoctor: {ModuleDoctor, ModuleHR}},
	}
	cases := []struct {
		role, module string
		want         bool
	}{
		{RoleDoctor, ModuleDoctor, true},
		{RoleDoctor, ModuleHR, false},        // disabled for tenant
		{RoleDoctor, ModuleReception, false}, // not in role list
		{RoleNurse, ModuleDoctor, false},     // role without list
		{RoleSuperAdmin, ModuleHR, true},
		{RoleSuperAdmin, "anything", true},
	}
	for _, tc := range cases {
		if got := tn.HasModuleAccess(tc.role, tc.module); got != tc.want {
			t.Errorf("HasModuleAccess(%s,%s)=%v want %v", tc.role, tc.module, got, tc.want)
		}
	}
}

func TestNilTenantDeniesNonSuperAdmin(t *testing.T) {
	var tn *Tenant
	if tn.HasModuleAccess(RoleAdmin, ModuleAdmin) {
		t.Fatal("nil tenant must deny")
	}
	if !tn.HasModuleAccess(RoleSuperAdmin, ModuleAdmin) {
		t.Fatal("super_admin passes regardless")
	}
}

func TestDefaultPermissionsReachEveryPortal(t *testing.T) {
	perms := DefaultRolePermissions()
	tn := &Tenant{Modules: DefaultModules(), RolePermissions: perms}
	pairs := map[string]string{
		RoleAdmin: ModuleAdmin, RoleDoctor: ModuleDoctor, RoleReceptionist: ModuleReception,
		RoleBilling: ModuleBilling, RoleHR: ModuleHR, RolePharmacist: ModuleInventory,
		RoleTechnician: ModuleTechnician, RoleProcedures: ModuleProcedures,
	}
	for role, mod := range pairs {
		if !tn.HasModuleAccess(role, mod) {
			t.Errorf("%s cannot reach %s", role, mod)
		}
	}
	for _, m := range perms[RoleAdmin] {
		if m == ModuleSuperAdmin {
			t.Fatal("admin must not hold super_admin")
		}
	}
}

func TestProductStockLevel(t *testing.T) {
	p := Product{CurrentStock: 5, MinStockLevel: 5, MaxStockLevel: 100}
	if p.StockLevel() != "low" {
		t.Fatalf("got %s", p.StockLevel())
	}
	p.CurrentStock = 50
	if p.StockLevel() != "normal" {
		t.Fatalf("got %s", p.StockLevel())
	}
	p.CurrentStock = 100
	if p.StockLevel() != "high" {
		t.Fatalf("got %s", p.StockLevel())
	}
}
