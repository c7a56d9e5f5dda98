package handlers

import (
	"errors"
	"time"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/metrics"
	"hospverse/internal/nav"
	"hospverse/internal/services"
	"hospverse/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	Auth *services.AuthService
	// DemoMode accepts the shared demo pair instead of stored passwords.
	DemoMode bool
	Activity *services.AdminService
}

type loginInput struct {
	Email    string `form:"email" validate:"required,max=100"`
	Password string `form:"password" validate:"required,max=100"`
}

// portalCard is one tile on the role picker.
type portalCard struct {
	Key, Title, Icon, Blurb, URL string
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) Landing(c *fiber.Ctx) error {
	return render(c, "index", fiber.Map{})
}

// GET /select-role
func (h *AuthHandler) SelectRole(c *fiber.Ctx) error {
	cards := make([]portalCard, 0, len(nav.Roles))
	for _, r := range nav.Roles {
		cards = append(cards, portalCard{
			Key: r.String(), Title: r.DisplayName(), Icon: r.Icon(), Blurb: r.Blurb(),
			URL: "/login?role=" + r.String(),
		})
	}
	return render(c, "select_role", fiber.Map{"Portals": cards})
}

// GET /login?role=<portal>
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if c.Query("role") == "" {
		return c.Redirect("/select-role")
	}
	portal, ok := nav.ParsePortal(c.Query("role"))
	if !ok {
		return h.invalidRole(c)
	}
	return render(c, "login", h.loginData(portal, nil, ""))
}

// POST /login?role=<portal>
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	portal, ok := nav.ParsePortal(c.Query("role"))
	if !ok {
		return h.invalidRole(c)
	}
	in := loginInput{Email: c.FormValue("email"), Password: c.FormValue("password")}
	if err := validate.Struct(in); err != nil {
		fe, _ := fieldErrors(err)
		data := h.loginData(portal, fe, "")
		data["Email"] = in.Email
		return renderStatus(c, fiber.StatusUnprocessableEntity, "login", data)
	}

	kind := "password"
	if h.DemoMode {
		kind = "demo"
	}
	sid := ensureSID(c)
	var (
		u   *domain.User
		err error
	)
	if h.DemoMode {
		u, err = h.Auth.DemoLogin(c.UserContext(), sid, portal, in.Email, in.Password)
	} else {
		u, err = h.Auth.Login(c.UserContext(), sid, in.Email, in.Password)
	}
	if errors.Is(err, services.ErrDemoCreds) || errors.Is(err, services.ErrBadCreds) {
		metrics.LoginsTotal.WithLabelValues(kind, "fail").Inc()
		applog.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "portal": portal.String()})
		msg := "Invalid email or password"
		if h.DemoMode {
			msg = "Invalid credentials. Use abc/123 for demo."
		}
		data := h.loginData(portal, nil, msg)
		data["Email"] = in.Email
		return renderStatus(c, fiber.StatusUnauthorized, "login", data)
	}
	if err != nil {
		applog.Error(c, "auth.login.error", err, nil)
		return err
	}

	metrics.LoginsTotal.WithLabelValues(kind, "ok").Inc()
	c.Locals("user_id", u.ID)
	applog.Audit(c, "auth.login.success", map[string]any{"portal": portal.String(), "role": u.Role})
	recordActivity(c, h.Activity, u, "auth", "Logged in to "+portal.DisplayName(), "login")
	setFlash(c, "success", "Welcome to "+portal.DisplayName()+"!")

	dest := portal.Dashboard()
	if !h.DemoMode {
		dest = dashboardFor(u)
	}
	return c.Redirect(dest)
}

func (h *AuthHandler) loginData(portal nav.Role, fe validate.FieldErrors, errMsg string) fiber.Map {
	return fiber.Map{
		"Portal":   portal.String(),
		"Title":    portal.DisplayName(),
		"Icon":     portal.Icon(),
		"Errors":   fe,
		"Err":      errMsg,
		"DemoMode": h.DemoMode,
	}
}

func (h *AuthHandler) invalidRole(c *fiber.Ctx) error {
	applog.Security(c, "auth.login.invalid_role", map[string]any{"role": c.Query("role")})
	return renderStatus(c, fiber.StatusBadRequest, "invalid_role", fiber.Map{"Role": c.Query("role")})
}

// Logout clears the session keys and the sid cookie. Without a session it
// still redirects.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
		applog.Error(c, "auth.logout.fail", err, nil)
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", nil)
	return c.Redirect("/select-role")
}

func (h *AuthHandler) Unauthorized(c *fiber.Ctx) error {
	return renderStatus(c, fiber.StatusForbidden, "unauthorized", fiber.Map{})
}

// GET /dashboard sends the user to their own portal.
func (h *AuthHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect("/select-role")
	}
	return c.Redirect(dashboardFor(u))
}

func dashboardFor(u *domain.User) string {
	if u.IsSuperAdmin() {
		return "/superadmin"
	}
	if r, ok := nav.ForUserRole(u.Role); ok {
		return r.Dashboard()
	}
	return "/unauthorized"
}

// recordActivity appends to the tenant's activity log. A failure is logged and
// never fails the request.
func recordActivity(c *fiber.Ctx, admin *services.AdminService, u *domain.User, module, action, actionType string) {
	if admin == nil || u == nil {
		return
	}
	if err := admin.Record(c.UserContext(), u.ClientID, u, module, action, actionType, c.IP()); err != nil {
		applog.Error(c, "activity.record.fail", err, map[string]any{"module": module})
	}
}
