package handlers

import (
	"hospverse/internal/guard"
	applog "hospverse/internal/log"
	"hospverse/internal/metrics"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LoadUser attaches the signed-in user, if any, for templates and logs.
func LoadUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil {
				c.Locals("user", u)
				c.Locals("user_id", u.ID)
			}
		}
		return c.Next()
	}
}

// RequireModule lets the request through only when the user is signed in and
// the tenant grants their role the module.
func RequireModule(tenants *services.TenantService, module string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		out := guard.Decide(guard.AuthState{Authenticated: u != nil}, tenants.Access(u), module)
		metrics.GuardDecisions.WithLabelValues(module, out.String()).Inc()

		switch out {
		case guard.Render:
			return c.Next()
		case guard.ShowLoading:
			c.Set("Retry-After", "1")
			return c.Status(fiber.StatusServiceUnavailable).Render("loading", fiber.Map{"Path": c.OriginalURL()})
		case guard.RedirectUnauthorized:
			applog.Security(c, "access.denied.module", map[string]any{"module": module, "role": u.Role, "client_id": u.ClientID})
		}
		return c.Redirect(out.Location())
	}
}

// RequireRole narrows a guarded group to the given user roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u != nil {
			for _, r := range roles {
				if u.Role == r {
					return c.Next()
				}
			}
		}
		applog.Security(c, "access.denied.role", map[string]any{"need": roles})
		return c.Redirect("/unauthorized")
	}
}

// CountRequests feeds the request counter after the handler ran.
func CountRequests() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		metrics.RequestsTotal.WithLabelValues(c.Method(), statusClass(status)).Inc()
		return err
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
