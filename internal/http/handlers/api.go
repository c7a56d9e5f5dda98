package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/metrics"
	"hospverse/internal/repos"
	"hospverse/internal/services"
	"hospverse/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// API serves the JSON surface under /api. Callers authenticate with a bearer
// access token whose session must still exist.
type API struct {
	Auth      *services.AuthService
	Tokens    *services.TokenIssuer
	Tenants   *services.TenantService
	Admin     *services.AdminService
	HR        *services.HRService
	CRM       *services.CRMService
	Reception *services.ReceptionService
	Doctor    *services.DoctorService
	Photos    *services.PhotoService
	Billing   *services.BillingService
	Inv       *services.InventoryService
	Tech      *services.TechnicianService
	Super     *services.SuperAdminService
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// apiError maps service errors onto status codes. 500s never carry err text.
func (a *API) apiError(c *fiber.Ctx, action string, err error) error {
	if fe, ok := fieldErrors(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": fe})
	}
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrTenantNotFound):
		return jsonError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrInvalidTransition):
		return jsonError(c, fiber.StatusConflict, "invalid status transition")
	case errors.Is(err, services.ErrSlotTaken):
		return jsonError(c, fiber.StatusConflict, "time slot already booked")
	case errors.Is(err, services.ErrInsufficientStock):
		return jsonError(c, fiber.StatusConflict, "insufficient stock")
	case errors.Is(err, services.ErrOverpayment):
		return jsonError(c, fiber.StatusConflict, "payment exceeds balance")
	}
	applog.Error(c, action+".fail", err, nil)
	return jsonError(c, fiber.StatusInternalServerError, "internal error")
}

func claimsOf(c *fiber.Ctx) *services.Claims {
	cl, _ := c.Locals("claims").(*services.Claims)
	return cl
}

func apiUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("api_user").(*domain.User)
	return u
}

// Bearer checks the access token and that its session was not logged out.
func (a *API) Bearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return jsonError(c, fiber.StatusUnauthorized, "missing bearer token")
		}
		cl, err := a.Tokens.Parse(raw, services.TokenAccess)
		if err != nil {
			applog.Security(c, "api.token.invalid", nil)
			return jsonError(c, fiber.StatusUnauthorized, "invalid token")
		}
		u, err := a.Auth.CurrentUser(c.UserContext(), cl.Sid)
		if err != nil {
			return jsonError(c, fiber.StatusUnauthorized, "session expired")
		}
		c.Locals("claims", cl)
		c.Locals("api_user", u)
		c.Locals("user_id", u.ID)
		return c.Next()
	}
}

// Module gates a group on the caller's tenant having the module enabled and
// granted to the caller's role.
func (a *API) Module(module string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cl := claimsOf(c)
		if a.Tenants.Loading() {
			c.Set("Retry-After", "1")
			return jsonError(c, fiber.StatusServiceUnavailable, "tenants loading")
		}
		t, err := a.Tenants.Get(cl.ClientID)
		if err != nil {
			return jsonError(c, fiber.StatusNotFound, "Tenant not found")
		}
		if cl.Role != domain.RoleSuperAdmin && !t.ModuleEnabled(module) {
			applog.Security(c, "api.access.denied.module", map[string]any{"module": module, "client_id": t.ID})
			return jsonError(c, fiber.StatusForbidden, fmt.Sprintf("Module '%s' is not enabled for this tenant", module))
		}
		if cl.Role != domain.RoleSuperAdmin && (!services.Operating(t) || !t.HasModuleAccess(cl.Role, module)) {
			applog.Security(c, "api.access.denied.role", map[string]any{"module": module, "role": cl.Role})
			return jsonError(c, fiber.StatusForbidden, "access denied")
		}
		return c.Next()
	}
}

// Role narrows an API group to the given roles.
func (a *API) Role(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cl := claimsOf(c)
		for _, r := range roles {
			if cl.Role == r {
				return c.Next()
			}
		}
		applog.Security(c, "api.access.denied.role", map[string]any{"need": roles, "role": cl.Role})
		return jsonError(c, fiber.StatusForbidden, "access denied")
	}
}

type apiLoginInput struct {
	Email    string `json:"email" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=100"`
}

// POST /api/login
func (a *API) Login(c *fiber.Ctx) error {
	var in apiLoginInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(in); err != nil {
		return a.apiError(c, "api.login", err)
	}
	sid := uuid.NewString()
	u, err := a.Auth.Login(c.UserContext(), sid, in.Email, in.Password)
	if errors.Is(err, services.ErrBadCreds) {
		metrics.LoginsTotal.WithLabelValues("api", "fail").Inc()
		applog.Security(c, "api.login.fail", map[string]any{"email": in.Email})
		return jsonError(c, fiber.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return a.apiError(c, "api.login", err)
	}
	access, refresh, err := a.Tokens.Issue(u, sid)
	if err != nil {
		return a.apiError(c, "api.login.token", err)
	}
	metrics.LoginsTotal.WithLabelValues("api", "ok").Inc()
	c.Locals("user_id", u.ID)
	applog.Audit(c, "api.login", map[string]any{"role": u.Role, "client_id": u.ClientID})
	return c.JSON(fiber.Map{"access_token": access, "refresh_token": refresh, "user": u})
}

// POST /api/refresh
func (a *API) Refresh(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&in); err != nil || in.RefreshToken == "" {
		return jsonError(c, fiber.StatusBadRequest, "refresh_token required")
	}
	cl, err := a.Tokens.Parse(in.RefreshToken, services.TokenRefresh)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "invalid token")
	}
	u, err := a.Auth.CurrentUser(c.UserContext(), cl.Sid)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "session expired")
	}
	access, refresh, err := a.Tokens.Issue(u, cl.Sid)
	if err != nil {
		return a.apiError(c, "api.refresh", err)
	}
	return c.JSON(fiber.Map{"access_token": access, "refresh_token": refresh})
}

// GET /api/me
func (a *API) Me(c *fiber.Ctx) error {
	u, err := a.Auth.Profile(c.UserContext(), apiUser(c))
	if err != nil {
		return a.apiError(c, "api.me", err)
	}
	return c.JSON(u)
}

// POST /api/logout
func (a *API) Logout(c *fiber.Ctx) error {
	if err := a.Auth.Logout(c.UserContext(), claimsOf(c).Sid); err != nil {
		return a.apiError(c, "api.logout", err)
	}
	applog.Audit(c, "api.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/tenant resolves by host subdomain, or ?tenant= in development.
func (a *API) Tenant(c *fiber.Ctx) error {
	t, err := a.Tenants.ResolveHost(c.Hostname(), c.Query("tenant"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "Tenant not found")
	}
	return c.JSON(t)
}

func (a *API) client(c *fiber.Ctx) string { return claimsOf(c).ClientID }

func (a *API) record(c *fiber.Ctx, module, action, actionType string) {
	if err := a.Admin.Record(c.UserContext(), a.client(c), apiUser(c), module, action, actionType, c.IP()); err != nil {
		applog.Error(c, "activity.record.fail", err, map[string]any{"module": module})
	}
}

func (a *API) bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return validate.FieldErrors{"body": "invalid request body"}
	}
	return nil
}

// admin

func (a *API) AdminMetrics(c *fiber.Ctx) error {
	m, err := a.Admin.Metrics(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.admin.metrics", err)
	}
	return c.JSON(m)
}

func (a *API) AdminLogs(c *fiber.Ctx) error {
	f := services.LogFilter{Date: c.Query("date"), Role: c.Query("role"), ActionType: c.Query("actionType"), Q: c.Query("search")}
	logs, err := a.Admin.Logs(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.admin.logs", err)
	}
	return c.JSON(nonNil(logs))
}

func (a *API) AdminExport(c *fiber.Ctx) error {
	url, err := a.Admin.ExportURL(c.Query("type"))
	if err != nil {
		return a.apiError(c, "api.admin.export", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// hr

func (a *API) HRStaff(c *fiber.Ctx) error {
	f := repos.StaffFilter{Branch: c.Query("branch"), Role: c.Query("role"), Status: c.Query("status"), Q: c.Query("search")}
	st, err := a.HR.Directory(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.hr.staff.list", err)
	}
	return c.JSON(nonNil(st))
}

func (a *API) HRStaffOne(c *fiber.Ctx) error {
	s, err := a.HR.Detail(c.UserContext(), a.client(c), c.Params("id"))
	if err != nil {
		return a.apiError(c, "api.hr.staff.get", err)
	}
	return c.JSON(s)
}

func (a *API) HRAddStaff(c *fiber.Ctx) error {
	var in services.StaffInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.hr.staff.create", err)
	}
	s, err := a.HR.Add(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.hr.staff.create", err)
	}
	a.record(c, "hr", "Added staff "+s.Name, "create")
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (a *API) HRUpdateStaff(c *fiber.Ctx) error {
	var in services.StaffInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.hr.staff.update", err)
	}
	s, err := a.HR.Update(c.UserContext(), a.client(c), c.Params("id"), in)
	if err != nil {
		return a.apiError(c, "api.hr.staff.update", err)
	}
	a.record(c, "hr", "Updated staff "+s.Name, "update")
	return c.JSON(s)
}

func (a *API) HRStats(c *fiber.Ctx) error {
	st, err := a.HR.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.hr.stats", err)
	}
	return c.JSON(st)
}

// crm

func (a *API) CRMLeads(c *fiber.Ctx) error {
	f := services.LeadFilter{Status: c.Query("status"), Source: c.Query("source"), AssignedTo: c.Query("assignedTo"), Q: c.Query("search")}
	leads, err := a.CRM.List(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.crm.leads.list", err)
	}
	return c.JSON(nonNil(leads))
}

func (a *API) CRMCreate(c *fiber.Ctx) error {
	var in services.LeadInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.crm.leads.create", err)
	}
	l, err := a.CRM.Create(c.UserContext(), a.client(c), apiUser(c).Name, in)
	if err != nil {
		return a.apiError(c, "api.crm.leads.create", err)
	}
	a.record(c, "crm", "Added lead "+l.FullName, "create")
	return c.Status(fiber.StatusCreated).JSON(l)
}

func (a *API) CRMStatus(c *fiber.Ctx) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.crm.leads.status", err)
	}
	if err := a.CRM.UpdateStatus(c.UserContext(), a.client(c), c.Params("id"), in.Status, apiUser(c).Name); err != nil {
		return a.apiError(c, "api.crm.leads.status", err)
	}
	a.record(c, "crm", "Lead marked "+in.Status, "update")
	return c.JSON(fiber.Map{"success": true})
}

func (a *API) CRMNote(c *fiber.Ctx) error {
	var in struct {
		Note string `json:"note"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.crm.leads.note", err)
	}
	if err := a.CRM.AddNote(c.UserContext(), a.client(c), c.Params("id"), in.Note, apiUser(c).Name); err != nil {
		return a.apiError(c, "api.crm.leads.note", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (a *API) CRMConvert(c *fiber.Ctx) error {
	p, err := a.CRM.Convert(c.UserContext(), a.client(c), c.Params("id"), apiUser(c).Name)
	if err != nil {
		return a.apiError(c, "api.crm.leads.convert", err)
	}
	a.record(c, "crm", "Converted lead "+p.FullName, "update")
	return c.JSON(fiber.Map{"success": true, "patientId": p.ID})
}

func (a *API) CRMStats(c *fiber.Ctx) error {
	st, err := a.CRM.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.crm.stats", err)
	}
	return c.JSON(st)
}

// reception

func (a *API) Queue(c *fiber.Ctx) error {
	q, err := a.Reception.QueueToday(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.reception.queue.list", err)
	}
	return c.JSON(nonNil(q))
}

func (a *API) AddToQueue(c *fiber.Ctx) error {
	var in services.WalkInInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.reception.queue.add", err)
	}
	e, err := a.Reception.AddWalkIn(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.reception.queue.add", err)
	}
	a.record(c, "reception", fmt.Sprintf("Walk-in #%d %s", e.QueueNumber, e.PatientName), "create")
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (a *API) QueueStatus(c *fiber.Ctx) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.reception.queue.status", err)
	}
	e, err := a.Reception.UpdateQueueStatus(c.UserContext(), a.client(c), c.Params("id"), in.Status)
	if err != nil {
		return a.apiError(c, "api.reception.queue.status", err)
	}
	return c.JSON(e)
}

func (a *API) TodayAppointments(c *fiber.Ctx) error {
	ap, err := a.Reception.TodayAppointments(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.reception.appointments.today", err)
	}
	return c.JSON(nonNil(ap))
}

func (a *API) Book(c *fiber.Ctx) error {
	var in services.BookingInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.reception.appointments.book", err)
	}
	ap, err := a.Reception.BookAppointment(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.reception.appointments.book", err)
	}
	a.record(c, "reception", "Booked "+ap.PatientName+" at "+ap.Time, "create")
	return c.Status(fiber.StatusCreated).JSON(ap)
}

func (a *API) RegisterPatient(c *fiber.Ctx) error {
	var in services.PatientInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.reception.patients.create", err)
	}
	p, err := a.Reception.RegisterPatient(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.reception.patients.create", err)
	}
	a.record(c, "reception", "Registered "+p.FullName, "create")
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (a *API) TimeSlots(c *fiber.Ctx) error {
	slots, err := a.Reception.TimeSlots(c.UserContext(), a.client(c), c.Query("date"), c.Query("doctorId"))
	if err != nil {
		return a.apiError(c, "api.reception.slots", err)
	}
	return c.JSON(nonNil(slots))
}

func (a *API) ReceptionStats(c *fiber.Ctx) error {
	st, err := a.Reception.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.reception.stats", err)
	}
	return c.JSON(st)
}

// doctor

func (a *API) DoctorAppointments(c *fiber.Ctx) error {
	f := services.AppointmentFilter{Status: c.Query("status"), Date: c.Query("date"), Q: c.Query("search")}
	ap, err := a.Doctor.Appointments(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.doctor.appointments.list", err)
	}
	return c.JSON(nonNil(ap))
}

func (a *API) AppointmentStatus(c *fiber.Ctx) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.doctor.appointments.status", err)
	}
	ap, err := a.Doctor.UpdateAppointmentStatus(c.UserContext(), a.client(c), c.Params("id"), in.Status)
	if err != nil {
		return a.apiError(c, "api.doctor.appointments.status", err)
	}
	return c.JSON(ap)
}

func (a *API) SOAP(c *fiber.Ctx) error {
	var in services.SOAPInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.doctor.soap", err)
	}
	n, err := a.Doctor.SaveSOAP(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.doctor.soap", err)
	}
	a.record(c, "doctor", "SOAP note for "+n.PatientName, "create")
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (a *API) DoctorStats(c *fiber.Ctx) error {
	st, err := a.Doctor.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.doctor.stats", err)
	}
	return c.JSON(st)
}

// photo manager

func (a *API) PhotoSessions(c *fiber.Ctx) error {
	s, err := a.Photos.Sessions(c.UserContext(), a.client(c), c.Query("treatment"), c.Query("search"))
	if err != nil {
		return a.apiError(c, "api.photos.sessions", err)
	}
	return c.JSON(nonNil(s))
}

func (a *API) PhotoList(c *fiber.Ctx) error {
	p, err := a.Photos.ListPhotos(c.UserContext(), a.client(c), c.Query("sessionId"))
	if err != nil {
		return a.apiError(c, "api.photos.list", err)
	}
	return c.JSON(nonNil(p))
}

func (a *API) PhotoUpload(c *fiber.Ctx) error {
	var in services.PhotoInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.photos.upload", err)
	}
	p, err := a.Photos.Upload(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.photos.upload", err)
	}
	a.record(c, "photo-manager", "Uploaded "+p.Kind+" photo "+p.FileName, "create")
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (a *API) PhotoDelete(c *fiber.Ctx) error {
	if err := a.Photos.Delete(c.UserContext(), a.client(c), c.Params("id")); err != nil {
		return a.apiError(c, "api.photos.delete", err)
	}
	a.record(c, "photo-manager", "Deleted photo "+c.Params("id"), "delete")
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) PhotoStats(c *fiber.Ctx) error {
	st, err := a.Photos.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.photos.stats", err)
	}
	return c.JSON(st)
}

// billing

func (a *API) Invoices(c *fiber.Ctx) error {
	f := services.InvoiceFilter{Status: c.Query("status"), Method: c.Query("method"), Q: c.Query("search")}
	inv, err := a.Billing.List(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.billing.invoices.list", err)
	}
	return c.JSON(nonNil(inv))
}

func (a *API) CreateInvoice(c *fiber.Ctx) error {
	var in services.InvoiceInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.billing.invoices.create", err)
	}
	inv, err := a.Billing.Create(c.UserContext(), a.client(c), in)
	if err != nil {
		return a.apiError(c, "api.billing.invoices.create", err)
	}
	a.record(c, "billing", "Invoice for "+inv.PatientName, "create")
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (a *API) Pay(c *fiber.Ctx) error {
	var in services.PaymentInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.billing.invoices.pay", err)
	}
	inv, err := a.Billing.Pay(c.UserContext(), a.client(c), c.Params("id"), in)
	if err != nil {
		return a.apiError(c, "api.billing.invoices.pay", err)
	}
	a.record(c, "billing", fmt.Sprintf("Payment %s on %s", money(in.Amount), inv.ID), "update")
	return c.JSON(inv)
}

func (a *API) Refund(c *fiber.Ctx) error {
	if err := a.Billing.Refund(c.UserContext(), a.client(c), c.Params("id")); err != nil {
		return a.apiError(c, "api.billing.invoices.refund", err)
	}
	a.record(c, "billing", "Refunded "+c.Params("id"), "update")
	return c.JSON(fiber.Map{"success": true})
}

func (a *API) BillingStats(c *fiber.Ctx) error {
	st, err := a.Billing.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.billing.stats", err)
	}
	return c.JSON(st)
}

// inventory

func (a *API) Products(c *fiber.Ctx) error {
	f := services.ProductFilter{Category: c.Query("category"), StockLevel: c.Query("stockLevel"), Q: c.Query("search")}
	p, err := a.Inv.List(c.UserContext(), a.client(c), f)
	if err != nil {
		return a.apiError(c, "api.inventory.products.list", err)
	}
	return c.JSON(nonNil(p))
}

// stockBody accepts qty as a JSON number or a numeric string.
type stockBody struct {
	Qty    json.Number `json:"qty"`
	Reason string      `json:"reason"`
}

func (a *API) AddStock(c *fiber.Ctx) error {
	return a.adjust(c, "add", a.Inv.AddStock)
}

func (a *API) Deduct(c *fiber.Ctx) error {
	return a.adjust(c, "deduct", a.Inv.Deduct)
}

func (a *API) adjust(c *fiber.Ctx, op string, fn stockFunc) error {
	var in stockBody
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.inventory.stock."+op, err)
	}
	stock, err := fn(c.UserContext(), a.client(c), c.Params("id"), apiUser(c).Name,
		services.StockInput{Qty: in.Qty.String(), Reason: in.Reason})
	if err != nil {
		return a.apiError(c, "api.inventory.stock."+op, err)
	}
	a.record(c, "inventory", fmt.Sprintf("Stock %s %s on %s", op, in.Qty, c.Params("id")), "update")
	return c.JSON(fiber.Map{"success": true, "newStock": stock})
}

func (a *API) InventoryStats(c *fiber.Ctx) error {
	st, err := a.Inv.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.inventory.stats", err)
	}
	return c.JSON(st)
}

// technician

func (a *API) Procedures(c *fiber.Ctx) error {
	p, err := a.Tech.List(c.UserContext(), a.client(c), c.Query("status"), c.Query("search"))
	if err != nil {
		return a.apiError(c, "api.technician.procedures.list", err)
	}
	return c.JSON(nonNil(p))
}

func (a *API) StartProcedure(c *fiber.Ctx) error {
	p, err := a.Tech.Start(c.UserContext(), a.client(c), c.Params("id"), apiUser(c).Name)
	if err != nil {
		return a.apiError(c, "api.technician.procedures.start", err)
	}
	return c.JSON(p)
}

func (a *API) CompleteProcedure(c *fiber.Ctx) error {
	var in struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := a.bind(c, &in); err != nil {
			return a.apiError(c, "api.technician.procedures.complete", err)
		}
	}
	p, err := a.Tech.Complete(c.UserContext(), a.client(c), c.Params("id"), in.Notes)
	if err != nil {
		return a.apiError(c, "api.technician.procedures.complete", err)
	}
	a.record(c, "technician", "Completed "+p.ProcedureType+" for "+p.PatientName, "update")
	return c.JSON(p)
}

func (a *API) TechnicianStats(c *fiber.Ctx) error {
	st, err := a.Tech.Stats(c.UserContext(), a.client(c))
	if err != nil {
		return a.apiError(c, "api.technician.stats", err)
	}
	return c.JSON(st)
}

// super admin

func (a *API) Clients(c *fiber.Ctx) error {
	f := services.ClientFilter{Plan: c.Query("plan"), Status: c.Query("status"), Q: c.Query("search")}
	return c.JSON(nonNil(a.Super.Clients(f)))
}

func (a *API) CreateClient(c *fiber.Ctx) error {
	var in services.ClinicInput
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.superadmin.create", err)
	}
	t, err := a.Super.CreateClinic(c.UserContext(), in)
	if err != nil {
		return a.apiError(c, "api.superadmin.create", err)
	}
	applog.Audit(c, "api.superadmin.create", map[string]any{"client_id": t.ID, "plan": t.Plan})
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (a *API) Client(c *fiber.Ctx) error {
	t, err := a.Super.Client(c.Params("id"))
	if err != nil {
		return a.apiError(c, "api.superadmin.client", err)
	}
	return c.JSON(t)
}

// ClientPermissions takes {"role": ..., "permissions": [...]} and answers
// with the role's new grant.
func (a *API) ClientPermissions(c *fiber.Ctx) error {
	var in services.RoleGrant
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.superadmin.permissions", err)
	}
	t, err := a.Super.AssignRolePermissions(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return a.apiError(c, "api.superadmin.permissions", err)
	}
	applog.Audit(c, "api.superadmin.permissions", map[string]any{"client_id": t.ID, "role": in.Role})
	return c.JSON(services.RoleGrant{Role: in.Role, Modules: nonNil(t.RolePermissions[in.Role])})
}

func (a *API) ClientModules(c *fiber.Ctx) error {
	var in struct {
		Modules map[string]bool `json:"modules"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.superadmin.modules", err)
	}
	t, err := a.Super.ToggleModules(c.UserContext(), c.Params("id"), in.Modules)
	if err != nil {
		return a.apiError(c, "api.superadmin.modules", err)
	}
	applog.Audit(c, "api.superadmin.modules", map[string]any{"client_id": t.ID})
	return c.JSON(t)
}

func (a *API) ClientStatus(c *fiber.Ctx) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := a.bind(c, &in); err != nil {
		return a.apiError(c, "api.superadmin.status", err)
	}
	t, err := a.Super.SetStatus(c.UserContext(), c.Params("id"), in.Status)
	if err != nil {
		return a.apiError(c, "api.superadmin.status", err)
	}
	applog.Audit(c, "api.superadmin.status", map[string]any{"client_id": t.ID, "status": t.Status})
	return c.JSON(t)
}

func (a *API) PlatformStats(c *fiber.Ctx) error {
	return c.JSON(a.Super.Stats())
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
