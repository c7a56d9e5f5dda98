package handlers

import (
	"errors"
	"fmt"
	"strings"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/nav"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

var (
	leadStatuses = []string{domain.LeadNew, domain.LeadContacted, domain.LeadInterested, domain.LeadConverted, domain.LeadDropped}
	leadSources  = []string{"walk-in", "website", "instagram", "facebook", "referral", "google", "other"}
)

type CRMHandler struct {
	CRM      *services.CRMService
	Activity *services.AdminService
}

// crmSidebar stands in for a portal entry; CRM is a module, not a role portal.
func crmSidebar(path string) nav.Sidebar {
	items := []nav.Item{{Title: "Dashboard", URL: "/crm", Icon: "home"}, {Title: "Leads", URL: "/crm/leads", Icon: "users2"}}
	sb := nav.Sidebar{Title: "CRM", Icon: "users2"}
	for _, it := range items {
		active := path == it.URL || (it.URL != "/crm" && strings.HasPrefix(path, it.URL+"/"))
		sb.Items = append(sb.Items, nav.ActiveItem{Item: it, Active: active})
	}
	return sb
}

func (h *CRMHandler) render(c *fiber.Ctx, status int, tmpl string, data fiber.Map) error {
	data["Sidebar"] = crmSidebar(c.Path())
	return renderStatus(c, status, tmpl, data)
}

// GET /crm
func (h *CRMHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "CRM Dashboard"}
	st, err := h.CRM.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "crm.stats.fail", err, nil)
		data["Flash"] = loadFailed("lead stats")
	}
	data["Cards"] = []card{
		{"Total Leads", fmt.Sprint(st.Total)},
		{"Converted", fmt.Sprint(st.Converted)},
		{"Conversion Rate", fmt.Sprintf("%.1f%%", st.ConversionRate)},
	}
	t := table{Caption: "Pipeline", Headers: []string{"Stage", "Leads"}}
	for _, s := range leadStatuses {
		t.Rows = append(t.Rows, []string{s, fmt.Sprint(st.ByStatus[s])})
	}
	data["Table"] = t
	return h.render(c, fiber.StatusOK, "dashboard", data)
}

// GET /crm/leads
func (h *CRMHandler) Leads(c *fiber.Ctx) error {
	return h.leadsPage(c, fiber.StatusOK, services.LeadInput{}, nil)
}

func (h *CRMHandler) leadsPage(c *fiber.Ctx, status int, in services.LeadInput, fe map[string]string) error {
	u := currentUser(c)
	ctx := c.UserContext()
	f := services.LeadFilter{Status: c.Query("status"), Source: c.Query("source"), AssignedTo: c.Query("assignedTo"), Q: c.Query("search")}
	data := fiber.Map{"Filter": f, "Form": in, "Errors": fe, "Statuses": leadStatuses, "Sources": leadSources}
	leads, err := h.CRM.List(ctx, u.ClientID, f)
	if err != nil {
		applog.Error(c, "crm.leads.list.fail", err, nil)
		data["Flash"] = loadFailed("leads")
	}
	data["Items"], data["Pager"] = paginate(c, leads)
	if who, err := h.CRM.Assignees(ctx, u.ClientID); err != nil {
		applog.Error(c, "crm.assignees.list.fail", err, nil)
	} else {
		data["Assignees"] = who
	}
	return h.render(c, status, "crm_leads", data)
}

// POST /crm/leads
func (h *CRMHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.LeadInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	l, err := h.CRM.Create(c.UserContext(), u.ClientID, u.Name, in)
	if fe, ok := fieldErrors(err); ok {
		return h.leadsPage(c, fiber.StatusUnprocessableEntity, in, fe)
	}
	if err != nil {
		applog.Error(c, "crm.leads.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "crm.leads.create", map[string]any{"lead_id": l.ID, "source": l.Source})
	recordActivity(c, h.Activity, u, "crm", "Added lead "+l.FullName, "create")
	setFlash(c, "success", "Lead added")
	return c.Redirect("/crm/leads")
}

// GET /crm/leads/:id
func (h *CRMHandler) Lead(c *fiber.Ctx) error {
	return h.leadPage(c, fiber.StatusOK, nil)
}

func (h *CRMHandler) leadPage(c *fiber.Ctx, status int, fe map[string]string) error {
	u := currentUser(c)
	l, events, err := h.CRM.Detail(c.UserContext(), u.ClientID, c.Params("id"))
	if errors.Is(err, services.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Lead not found"})
	}
	if err != nil {
		applog.Error(c, "crm.leads.detail.fail", err, map[string]any{"lead_id": c.Params("id")})
		return err
	}
	return h.render(c, status, "crm_lead", fiber.Map{"Lead": l, "Events": events, "Statuses": leadStatuses, "Errors": fe})
}

// POST /crm/leads/:id/status
func (h *CRMHandler) UpdateStatus(c *fiber.Ctx) error {
	u := currentUser(c)
	status := c.FormValue("status")
	err := h.CRM.UpdateStatus(c.UserContext(), u.ClientID, c.Params("id"), status, u.Name)
	return h.afterLead(c, "status", err, "Lead marked "+status)
}

// POST /crm/leads/:id/notes
func (h *CRMHandler) AddNote(c *fiber.Ctx) error {
	u := currentUser(c)
	err := h.CRM.AddNote(c.UserContext(), u.ClientID, c.Params("id"), c.FormValue("note"), u.Name)
	if fe, ok := fieldErrors(err); ok {
		return h.leadPage(c, fiber.StatusUnprocessableEntity, fe)
	}
	return h.afterLead(c, "note", err, "Note added")
}

// POST /crm/leads/:id/convert
func (h *CRMHandler) Convert(c *fiber.Ctx) error {
	u := currentUser(c)
	p, err := h.CRM.Convert(c.UserContext(), u.ClientID, c.Params("id"), u.Name)
	msg := ""
	if p != nil {
		msg = p.FullName + " registered as a patient"
	}
	return h.afterLead(c, "convert", err, msg)
}

// POST /crm/leads/:id/drop
func (h *CRMHandler) Drop(c *fiber.Ctx) error {
	u := currentUser(c)
	err := h.CRM.Drop(c.UserContext(), u.ClientID, c.Params("id"), u.Name)
	return h.afterLead(c, "drop", err, "Lead dropped")
}

func (h *CRMHandler) afterLead(c *fiber.Ctx, op string, err error, okMsg string) error {
	id := c.Params("id")
	switch {
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Lead not found")
		return c.Redirect("/crm/leads")
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "That change is not allowed for this lead")
	case err != nil:
		applog.Error(c, "crm.leads."+op+".fail", err, map[string]any{"lead_id": id})
		setFlash(c, "error", "Could not update the lead")
	default:
		applog.Audit(c, "crm.leads."+op, map[string]any{"lead_id": id})
		recordActivity(c, h.Activity, currentUser(c), "crm", okMsg, "update")
		setFlash(c, "success", okMsg)
	}
	return c.Redirect("/crm/leads/" + id)
}
