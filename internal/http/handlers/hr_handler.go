package handlers

import (
	"fmt"

	applog "hospverse/internal/log"
	"hospverse/internal/repos"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

var staffRoles = []string{"admin", "doctor", "nurse", "receptionist", "pharmacist", "technician", "billing", "hr"}

type HRHandler struct {
	HR       *services.HRService
	Activity *services.AdminService
}

// GET /hr
func (h *HRHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "HR Dashboard"}
	st, err := h.HR.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "hr.stats.fail", err, nil)
		data["Flash"] = loadFailed("staff stats")
	}
	data["Cards"] = []card{
		{"Total Staff", fmt.Sprint(st.Total)},
		{"Active", fmt.Sprint(st.Active)},
		{"On Leave", fmt.Sprint(st.OnLeave)},
		{"Monthly Payroll", fmt.Sprintf("₹%d", st.Payroll)},
	}
	t := table{Caption: "Headcount by role", Headers: []string{"Role", "Staff"}}
	for _, r := range staffRoles {
		if n := st.ByRole[r]; n > 0 {
			t.Rows = append(t.Rows, []string{r, fmt.Sprint(n)})
		}
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /hr/employees filters in the database.
func (h *HRHandler) Employees(c *fiber.Ctx) error {
	return h.employeesPage(c, fiber.StatusOK, services.StaffInput{}, nil)
}

func (h *HRHandler) employeesPage(c *fiber.Ctx, status int, in services.StaffInput, fe map[string]string) error {
	u := currentUser(c)
	ctx := c.UserContext()
	f := repos.StaffFilter{Branch: c.Query("branch"), Role: c.Query("role"), Status: c.Query("status"), Q: c.Query("q")}
	data := fiber.Map{
		"Filter": f, "Form": in, "Errors": fe, "Roles": staffRoles,
		"Statuses": []string{"active", "on-leave", "inactive"},
	}
	branches, err := h.HR.Branches(ctx, u.ClientID)
	if err != nil {
		applog.Error(c, "hr.branches.list.fail", err, nil)
	}
	data["Branches"] = branches
	staff, err := h.HR.Directory(ctx, u.ClientID, f)
	if err != nil {
		applog.Error(c, "hr.staff.list.fail", err, nil)
		data["Flash"] = loadFailed("staff")
	}
	data["Items"], data["Pager"] = paginate(c, staff)
	return renderStatus(c, status, "hr_employees", data)
}

// POST /hr/employees
func (h *HRHandler) Add(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.StaffInput
	if err := c.BodyParser(&in); err != nil {
		return h.employeesPage(c, fiber.StatusUnprocessableEntity, in, map[string]string{"salary": "Please enter a whole number"})
	}
	st, err := h.HR.Add(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.employeesPage(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if err != nil {
		applog.Error(c, "hr.staff.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "hr.staff.create", map[string]any{"staff_id": st.ID, "role": st.Role})
	recordActivity(c, h.Activity, u, "hr", "Added staff member "+st.Name, "create")
	setFlash(c, "success", "Added "+st.Name)
	return c.Redirect("/hr/employees")
}

// GET /hr/payroll
func (h *HRHandler) Payroll(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Payroll"}
	staff, err := h.HR.Directory(c.UserContext(), u.ClientID, repos.StaffFilter{})
	if err != nil {
		applog.Error(c, "hr.payroll.list.fail", err, nil)
		data["Flash"] = loadFailed("payroll")
	}
	total := 0
	t := table{Caption: "Monthly salaries", Headers: []string{"Name", "Role", "Branch", "Status", "Salary"}}
	for _, s := range staff {
		if s.Status == "inactive" {
			continue
		}
		total += s.Salary
		t.Rows = append(t.Rows, []string{s.Name, s.Role, s.Branch, s.Status, fmt.Sprintf("₹%d", s.Salary)})
	}
	data["Cards"] = []card{{"Staff on payroll", fmt.Sprint(len(t.Rows))}, {"Monthly total", fmt.Sprintf("₹%d", total)}}
	data["Table"] = t
	return render(c, "dashboard", data)
}
