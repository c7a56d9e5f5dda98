package handlers

import (
	"fmt"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/repos"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

var (
	actionTypes = []string{"create", "update", "delete", "login", "view"}
	reportKinds = []string{"revenue", "appointments", "staff", "inventory", "patients"}
)

type AdminHandler struct {
	Admin   *services.AdminService
	Tenants *services.TenantService
	HR      *services.HRService
}

// GET /admin loads the four metric widgets concurrently. A failed widget is
// shown empty with a flash; the page itself still renders.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	ctx := c.UserContext()

	var (
		revenue           float64
		appts, staff, low int
		errs              [4]error
		g                 errgroup.Group
	)
	g.Go(func() error { revenue, errs[0] = h.Admin.RevenueToday(ctx, u.ClientID); return nil })
	g.Go(func() error { appts, errs[1] = h.Admin.AppointmentsToday(ctx, u.ClientID); return nil })
	g.Go(func() error { staff, errs[2] = h.Admin.ActiveStaff(ctx, u.ClientID); return nil })
	g.Go(func() error { low, errs[3] = h.Admin.LowInventory(ctx, u.ClientID); return nil })
	_ = g.Wait()

	widgets := []string{"revenue", "appointments", "staff", "inventory"}
	data := fiber.Map{"Title": "Admin Dashboard"}
	for i, err := range errs {
		if err != nil {
			applog.Error(c, "admin.metrics."+widgets[i]+".fail", err, nil)
			data["Flash"] = loadFailed(widgets[i] + " metrics")
		}
	}
	m := domain.AdminMetrics{RevenueToday: revenue, TotalAppointments: appts, ActiveStaff: staff, LowInventory: low}
	data["Cards"] = []card{
		{"Revenue Today", money(m.RevenueToday)},
		{"Appointments", fmt.Sprint(m.TotalAppointments)},
		{"Active Staff", fmt.Sprint(m.ActiveStaff)},
		{"Low Inventory", fmt.Sprint(m.LowInventory)},
	}

	recent, err := h.Admin.Logs(ctx, u.ClientID, services.LogFilter{})
	if err != nil {
		applog.Error(c, "admin.logs.list.fail", err, nil)
		data["Flash"] = loadFailed("activity")
	}
	if len(recent) > 8 {
		recent = recent[:8]
	}
	t := table{Caption: "Recent activity", Headers: []string{"When", "User", "Module", "Action"}}
	for _, a := range recent {
		t.Rows = append(t.Rows, []string{a.Timestamp, a.User, a.Module, a.Action})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /admin/users
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{}
	users, err := h.Admin.ListUsers(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		data["Flash"] = loadFailed("users")
	}
	data["Items"], data["Pager"] = paginate(c, users)
	return render(c, "admin_users", data)
}

// GET /admin/logs
func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	u := currentUser(c)
	f := services.LogFilter{Date: c.Query("date"), Role: c.Query("role"), ActionType: c.Query("actionType"), Q: c.Query("search")}
	data := fiber.Map{"Filter": f, "ActionTypes": actionTypes, "Dates": []string{"today", "yesterday", "week"}}
	logs, err := h.Admin.Logs(c.UserContext(), u.ClientID, f)
	if err != nil {
		applog.Error(c, "admin.logs.list.fail", err, nil)
		data["Flash"] = loadFailed("activity logs")
	}
	data["Items"], data["Pager"] = paginate(c, logs)
	return render(c, "admin_logs", data)
}

// GET /admin/reports
func (h *AdminHandler) Reports(c *fiber.Ctx) error {
	return render(c, "admin_reports", fiber.Map{"Kinds": reportKinds})
}

// POST /admin/reports/export
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	kind := c.FormValue("type")
	url, err := h.Admin.ExportURL(kind)
	if fe, ok := fieldErrors(err); ok {
		return renderStatus(c, fiber.StatusUnprocessableEntity, "admin_reports", fiber.Map{"Kinds": reportKinds, "Errors": fe})
	}
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.reports.export", map[string]any{"type": kind})
	recordActivity(c, h.Admin, currentUser(c), "reports", "Exported "+kind+" report", "view")
	return render(c, "admin_reports", fiber.Map{"Kinds": reportKinds, "ExportURL": url})
}

// GET /admin/settings shows the tenant's entitlements.
func (h *AdminHandler) Settings(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"AllModules": domain.AllModules}
	t, err := h.Tenants.Get(u.ClientID)
	if err != nil {
		applog.Error(c, "admin.settings.tenant.fail", err, map[string]any{"client_id": u.ClientID})
		data["Flash"] = loadFailed("clinic settings")
	} else {
		data["Tenant"] = t
	}
	return render(c, "admin_settings", data)
}

// GET /admin/branches
func (h *AdminHandler) Branches(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Multi-branch"}
	branches, err := h.HR.Branches(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "admin.branches.list.fail", err, nil)
		data["Flash"] = loadFailed("branches")
	}
	t := table{Caption: "Branches", Headers: []string{"Branch", "Staff"}}
	for _, b := range branches {
		st, err := h.HR.Directory(c.UserContext(), u.ClientID, repos.StaffFilter{Branch: b})
		if err != nil {
			applog.Error(c, "admin.branches.staff.fail", err, map[string]any{"branch": b})
			continue
		}
		t.Rows = append(t.Rows, []string{b, fmt.Sprint(len(st))})
	}
	data["Cards"] = []card{{"Branches", fmt.Sprint(len(branches))}}
	data["Table"] = t
	return render(c, "dashboard", data)
}
