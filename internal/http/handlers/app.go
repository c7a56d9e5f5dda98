package handlers

import (
	"strings"
	"time"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/nav"
	"hospverse/internal/telemetry"
	"hospverse/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrorHandler logs and renders a friendly page without leaking internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
		code, msg = fe.Code, fe.Message
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})
	if strings.HasPrefix(c.Path(), "/api/") {
		if code >= 500 {
			msg = "internal error"
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// fieldErr reads one message out of a page's Errors, which may be unset.
func fieldErr(errs any, field string) string {
	switch m := errs.(type) {
	case validate.FieldErrors:
		return m[field]
	case map[string]string:
		return m[field]
	}
	return ""
}

// NewApp builds the fiber app with the full middleware stack and every route.
func NewApp(d *Deps) *fiber.App {
	engine := html.New(d.Cfg.TemplatesDir, ".html")
	engine.AddFunc("money", money)
	engine.AddFunc("fieldErr", fieldErr)

	app := fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Server().MaxRequestBodySize = 1 << 20

	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n"}))
	app.Use(helmet.New())
	app.Use(telemetry.Middleware())
	app.Use(CountRequests())
	app.Use(LoadUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasSuffix(p, "/stream") || p == "/metrics"
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		// the API authenticates with bearer tokens, not cookies
		Next: func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Static("/static", d.Cfg.StaticDir)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "tenantsLoaded": !d.Tenants.Loading()})
	})

	mountPages(app, d)
	mountAPI(app, d)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app
}

func mountPages(app *fiber.App, d *Deps) {
	auth := d.AuthHandler
	loginMax := d.LoginMax
	if loginMax == 0 {
		loginMax = 5
	}

	app.Get("/", auth.Landing)
	app.Get("/select-role", auth.SelectRole)
	app.Get("/login", auth.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        loginMax,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), auth.Login)
	app.Get("/logout", auth.Logout)
	app.Post("/logout", auth.Logout)
	app.Get("/unauthorized", auth.Unauthorized)
	app.Get("/dashboard", auth.Dashboard)

	portal := func(r nav.Role) fiber.Router {
		return app.Group(r.Prefix(), RequireModule(d.Tenants, r.Module()))
	}

	doc := portal(nav.Doctor)
	doc.Get("/", d.DoctorHandler.Dashboard)
	doc.Get("/appointments", d.DoctorHandler.Appointments)
	doc.Post("/appointments/:id/status", d.DoctorHandler.UpdateStatus)
	doc.Get("/patients", d.DoctorHandler.Patients)
	doc.Get("/emr", d.DoctorHandler.EMR)
	doc.Post("/emr", d.DoctorHandler.SaveSOAP)
	doc.Get("/procedures", d.DoctorHandler.Procedures)
	doc.Get("/*", Section)

	rec := portal(nav.Reception)
	rec.Get("/", d.ReceptionHandler.Dashboard)
	rec.Get("/appointments", d.ReceptionHandler.Booking)
	rec.Post("/appointments", d.ReceptionHandler.Book)
	rec.Get("/register", d.ReceptionHandler.Register)
	rec.Post("/register", d.ReceptionHandler.RegisterPatient)
	rec.Get("/queue", d.ReceptionHandler.Queue)
	rec.Get("/queue/stream", d.ReceptionHandler.QueueStream)
	rec.Post("/queue", d.ReceptionHandler.AddWalkIn)
	rec.Post("/queue/:id/status", d.ReceptionHandler.UpdateQueueStatus)
	rec.Get("/checkin", d.ReceptionHandler.CheckInPage)
	rec.Post("/checkin/:id", d.ReceptionHandler.CheckIn)
	rec.Post("/checkout/:id", d.ReceptionHandler.CheckOut)

	bill := portal(nav.Billing)
	bill.Get("/", d.BillingHandler.Dashboard)
	bill.Get("/invoices", d.BillingHandler.Invoices)
	bill.Post("/invoices", d.BillingHandler.Create)
	bill.Get("/payments", d.BillingHandler.Payments)
	bill.Post("/invoices/:id/pay", d.BillingHandler.Pay)
	bill.Post("/invoices/:id/refund", d.BillingHandler.Refund)
	bill.Get("/*", Section)

	hr := portal(nav.HR)
	hr.Get("/", d.HRHandler.Dashboard)
	hr.Get("/employees", d.HRHandler.Employees)
	hr.Post("/employees", d.HRHandler.Add)
	hr.Get("/payroll", d.HRHandler.Payroll)
	hr.Get("/*", Section)

	inv := portal(nav.Inventory)
	inv.Get("/", d.InventoryHandler.Dashboard)
	inv.Get("/products", d.InventoryHandler.Products)
	inv.Get("/stock", d.InventoryHandler.Stock)
	inv.Post("/stock/:id/add", d.InventoryHandler.AddStock)
	inv.Post("/stock/:id/deduct", d.InventoryHandler.Deduct)
	inv.Get("/*", Section)

	tech := portal(nav.Technician)
	tech.Get("/", d.TechnicianHandler.Dashboard)
	tech.Get("/procedures", d.TechnicianHandler.Procedures)
	tech.Post("/procedures/:id/start", d.TechnicianHandler.Start)
	tech.Post("/procedures/:id/complete", d.TechnicianHandler.Complete)
	tech.Get("/history", d.TechnicianHandler.History)
	tech.Get("/photos", d.TechnicianHandler.PhotosPage)
	tech.Post("/photos/sessions", d.TechnicianHandler.CreateSession)
	tech.Post("/photos", d.TechnicianHandler.Upload)
	tech.Post("/photos/:id/delete", d.TechnicianHandler.DeletePhoto)
	tech.Get("/*", Section)

	proc := portal(nav.Procedures)
	proc.Get("/", d.ProceduresHandler.Dashboard)
	proc.Get("/catalog", d.ProceduresHandler.Catalog)
	proc.Post("/catalog", d.ProceduresHandler.Schedule)
	proc.Get("/*", Section)

	adm := portal(nav.Admin)
	adm.Get("/", d.AdminHandler.Dashboard)
	adm.Get("/users", d.AdminHandler.Users)
	adm.Get("/logs", d.AdminHandler.Logs)
	adm.Get("/reports", d.AdminHandler.Reports)
	adm.Post("/reports/export", d.AdminHandler.Export)
	adm.Get("/settings", d.AdminHandler.Settings)
	adm.Get("/branches", d.AdminHandler.Branches)

	crm := app.Group("/crm", RequireModule(d.Tenants, domain.ModuleCRM))
	crm.Get("/", d.CRMHandler.Dashboard)
	crm.Get("/leads", d.CRMHandler.Leads)
	crm.Post("/leads", d.CRMHandler.Create)
	crm.Get("/leads/:id", d.CRMHandler.Lead)
	crm.Post("/leads/:id/status", d.CRMHandler.UpdateStatus)
	crm.Post("/leads/:id/notes", d.CRMHandler.AddNote)
	crm.Post("/leads/:id/convert", d.CRMHandler.Convert)
	crm.Post("/leads/:id/drop", d.CRMHandler.Drop)

	sa := app.Group("/superadmin", RequireModule(d.Tenants, domain.ModuleSuperAdmin), RequireRole(domain.RoleSuperAdmin))
	sa.Get("/", d.SuperAdminHandler.Clients)
	sa.Post("/clients", d.SuperAdminHandler.CreateClient)
	sa.Get("/clients/:id", d.SuperAdminHandler.Client)
	sa.Post("/clients/:id/permissions", d.SuperAdminHandler.AssignPermissions)
	sa.Post("/clients/:id/modules", d.SuperAdminHandler.ToggleModules)
	sa.Post("/clients/:id/status", d.SuperAdminHandler.SetStatus)
}

func mountAPI(app *fiber.App, d *Deps) {
	a := d.API
	api := app.Group("/api")
	api.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.api.login.hit", nil)
			return jsonError(c, fiber.StatusTooManyRequests, "too many attempts")
		},
	}), a.Login)
	api.Post("/refresh", a.Refresh)
	api.Get("/tenant", a.Tenant)

	api.Get("/me", a.Bearer(), a.Me)
	api.Post("/logout", a.Bearer(), a.Logout)

	adm := api.Group("/admin", a.Bearer(), a.Module(domain.ModuleAdmin), a.Role(domain.RoleAdmin, domain.RoleSuperAdmin))
	adm.Get("/metrics", a.AdminMetrics)
	adm.Get("/logs", a.AdminLogs)
	adm.Get("/reports/export", a.AdminExport)

	hr := api.Group("/hr", a.Bearer(), a.Module(domain.ModuleHR))
	hr.Get("/staff", a.HRStaff)
	hr.Get("/staff/:id", a.HRStaffOne)
	hr.Post("/staff", a.HRAddStaff)
	hr.Put("/staff/:id", a.HRUpdateStaff)
	hr.Get("/stats", a.HRStats)

	crm := api.Group("/crm", a.Bearer(), a.Module(domain.ModuleCRM))
	crm.Get("/leads", a.CRMLeads)
	crm.Post("/leads", a.CRMCreate)
	crm.Patch("/leads/:id/status", a.CRMStatus)
	crm.Post("/leads/:id/notes", a.CRMNote)
	crm.Post("/leads/:id/convert", a.CRMConvert)
	crm.Get("/stats", a.CRMStats)

	rec := api.Group("/reception", a.Bearer(), a.Module(domain.ModuleReception))
	rec.Get("/queue", a.Queue)
	rec.Post("/queue", a.AddToQueue)
	rec.Patch("/queue/:id/status", a.QueueStatus)
	rec.Get("/appointments/today", a.TodayAppointments)
	rec.Post("/appointments", a.Book)
	rec.Post("/patients", a.RegisterPatient)
	rec.Get("/time-slots", a.TimeSlots)
	rec.Get("/stats", a.ReceptionStats)

	doc := api.Group("/doctor", a.Bearer(), a.Module(domain.ModuleDoctor))
	doc.Get("/appointments", a.DoctorAppointments)
	doc.Patch("/appointments/:id/status", a.AppointmentStatus)
	doc.Post("/soap", a.SOAP)
	doc.Get("/stats", a.DoctorStats)

	ph := api.Group("/photo-manager", a.Bearer(), a.Module(domain.ModulePhotoManager))
	ph.Get("/sessions", a.PhotoSessions)
	ph.Get("/photos", a.PhotoList)
	ph.Post("/photos", a.PhotoUpload)
	ph.Delete("/photos/:id", a.PhotoDelete)
	ph.Get("/stats", a.PhotoStats)

	bill := api.Group("/billing", a.Bearer(), a.Module(domain.ModuleBilling))
	bill.Get("/invoices", a.Invoices)
	bill.Post("/invoices", a.CreateInvoice)
	bill.Post("/invoices/:id/pay", a.Pay)
	bill.Post("/invoices/:id/refund", a.Refund)
	bill.Get("/stats", a.BillingStats)

	inv := api.Group("/inventory", a.Bearer(), a.Module(domain.ModuleInventory))
	inv.Get("/products", a.Products)
	inv.Post("/products/:id/add-stock", a.AddStock)
	inv.Post("/products/:id/deduct", a.Deduct)
	inv.Get("/stats", a.InventoryStats)

	tech := api.Group("/technician", a.Bearer(), a.Module(domain.ModuleTechnician))
	tech.Get("/procedures", a.Procedures)
	tech.Post("/procedures/:id/start", a.StartProcedure)
	tech.Post("/procedures/:id/complete", a.CompleteProcedure)
	tech.Get("/stats", a.TechnicianStats)

	sa := api.Group("/super-admin", a.Bearer(), a.Role(domain.RoleSuperAdmin))
	sa.Get("/clients", a.Clients)
	sa.Post("/clients", a.CreateClient)
	sa.Get("/clients/:id", a.Client)
	sa.Patch("/clients/:id/permissions", a.ClientPermissions)
	sa.Patch("/clients/:id/modules", a.ClientModules)
	sa.Patch("/clients/:id/status", a.ClientStatus)
	sa.Get("/stats", a.PlatformStats)

	api.Use(func(c *fiber.Ctx) error {
		return jsonError(c, fiber.StatusNotFound, "not found")
	})
}
