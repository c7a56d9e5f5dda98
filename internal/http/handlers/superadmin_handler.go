package handlers

import (
	"errors"
	"fmt"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

var (
	plans          = []string{"basic", "professional", "enterprise", "trial"}
	tenantStatuses = []string{"active", "trial", "suspended", "inactive"}
)

type SuperAdminHandler struct {
	Super *services.SuperAdminService
}

// GET /superadmin
func (h *SuperAdminHandler) Clients(c *fiber.Ctx) error {
	return h.page(c, fiber.StatusOK, services.ClinicInput{Plan: "professional"}, nil)
}

func (h *SuperAdminHandler) page(c *fiber.Ctx, status int, in services.ClinicInput, fe map[string]string) error {
	f := services.ClientFilter{Plan: c.Query("plan"), Status: c.Query("status"), Q: c.Query("search")}
	st := h.Super.Stats()
	data := fiber.Map{
		"Filter": f, "Errors": fe, "Form": in, "Plans": plans, "Statuses": tenantStatuses, "AllModules": domain.AllModules,
		"Cards": []card{
			{"Clients", fmt.Sprint(st.TotalClients)},
			{"Active", fmt.Sprint(st.ActiveClients)},
			{"Trials", fmt.Sprint(st.TrialClients)},
			{"Users", fmt.Sprint(st.TotalUsers)},
			{"Monthly Revenue", fmt.Sprintf("$%.0f", st.MonthlyRevenue)},
		},
	}
	data["Items"], data["Pager"] = paginate(c, h.Super.Clients(f))
	return renderStatus(c, status, "superadmin", data)
}

// POST /superadmin/clients registers a client. Module boxes left unchecked
// start switched off.
func (h *SuperAdminHandler) CreateClient(c *fiber.Ctx) error {
	var in services.ClinicInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Modules = checkedModules(c)
	t, err := h.Super.CreateClinic(c.UserContext(), in)
	if fe, ok := fieldErrors(err); ok {
		return h.page(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if err != nil {
		applog.Error(c, "superadmin.clients.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "superadmin.clients.create", map[string]any{"client_id": t.ID, "plan": t.Plan})
	setFlash(c, "success", t.Name+" created")
	return c.Redirect("/superadmin/clients/" + t.ID)
}

// GET /superadmin/clients/:id
func (h *SuperAdminHandler) Client(c *fiber.Ctx) error {
	return h.detail(c, fiber.StatusOK, nil)
}

func (h *SuperAdminHandler) detail(c *fiber.Ctx, status int, fe map[string]string) error {
	t, err := h.Super.Client(c.Params("id"))
	if err != nil {
		return fiber.ErrNotFound
	}
	type grant struct {
		Role    string
		Granted map[string]bool
	}
	var grants []grant
	for _, role := range h.Super.Roles() {
		g := grant{Role: role, Granted: map[string]bool{}}
		for _, m := range t.RolePermissions[role] {
			g.Granted[m] = true
		}
		grants = append(grants, g)
	}
	var assignable []string
	for _, m := range domain.AllModules {
		if m != domain.ModuleSuperAdmin {
			assignable = append(assignable, m)
		}
	}
	return renderStatus(c, status, "superadmin_client", fiber.Map{
		"Title": t.Name, "Client": t, "Grants": grants, "Modules": assignable, "Errors": fe,
	})
}

// POST /superadmin/clients/:id/permissions replaces one role's grants with
// the checked boxes.
func (h *SuperAdminHandler) AssignPermissions(c *fiber.Ctx) error {
	id := c.Params("id")
	g := services.RoleGrant{Role: c.FormValue("role")}
	for m, on := range checkedModules(c) {
		if on {
			g.Modules = append(g.Modules, m)
		}
	}
	t, err := h.Super.AssignRolePermissions(c.UserContext(), id, g)
	if fe, ok := fieldErrors(err); ok {
		return h.detail(c, fiber.StatusUnprocessableEntity, fe)
	}
	switch {
	case errors.Is(err, services.ErrTenantNotFound):
		return fiber.ErrNotFound
	case err != nil:
		applog.Error(c, "superadmin.clients.permissions.fail", err, map[string]any{"client_id": id})
		setFlash(c, "error", "Could not update permissions")
	default:
		applog.Audit(c, "superadmin.clients.permissions", map[string]any{"client_id": id, "role": g.Role, "modules": g.Modules})
		setFlash(c, "success", t.Name+": "+g.Role+" permissions saved")
	}
	return c.Redirect("/superadmin/clients/" + id)
}

// checkedModules reads mod_<name> checkboxes. super_admin is never offered.
func checkedModules(c *fiber.Ctx) map[string]bool {
	out := make(map[string]bool, len(domain.AllModules))
	for _, m := range domain.AllModules {
		if m == domain.ModuleSuperAdmin {
			continue
		}
		out[m] = c.FormValue("mod_"+m) == "on"
	}
	return out
}

// POST /superadmin/clients/:id/modules takes the full set of checked boxes;
// unchecked modules are switched off.
func (h *SuperAdminHandler) ToggleModules(c *fiber.Ctx) error {
	id := c.Params("id")
	t, err := h.Super.ToggleModules(c.UserContext(), id, checkedModules(c))
	return h.after(c, "modules", id, t, err)
}

// POST /superadmin/clients/:id/status
func (h *SuperAdminHandler) SetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	t, err := h.Super.SetStatus(c.UserContext(), id, c.FormValue("status"))
	return h.after(c, "status", id, t, err)
}

func (h *SuperAdminHandler) after(c *fiber.Ctx, op, id string, t *domain.Tenant, err error) error {
	if fe, ok := fieldErrors(err); ok {
		return h.page(c, fiber.StatusUnprocessableEntity, services.ClinicInput{Plan: "professional"}, fe)
	}
	switch {
	case errors.Is(err, services.ErrTenantNotFound):
		setFlash(c, "error", "Client not found")
	case err != nil:
		applog.Error(c, "superadmin.clients."+op+".fail", err, map[string]any{"client_id": id})
		setFlash(c, "error", "Could not update the client")
	default:
		applog.Audit(c, "superadmin.clients."+op, map[string]any{"client_id": id, "status": t.Status})
		setFlash(c, "success", t.Name+" updated")
	}
	return c.Redirect("/superadmin")
}
