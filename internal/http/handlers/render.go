package handlers

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/nav"
	"hospverse/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "flash"

// Flash is a one-shot toast shown on the next rendered page.
type Flash struct {
	Kind    string // success|error|info
	Message string
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
		if _, ok := data["Sidebar"]; !ok {
			data["Sidebar"] = nav.Build(c.Path())
		}
	}
	// csrf middleware leaves the token in Locals; the cookie covers handlers mounted without it
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	if _, ok := data["Flash"]; !ok {
		if f, ok := popFlash(c); ok {
			data["Flash"] = f
		}
	}
	data["Path"] = c.Path()
	return c.Render(tmpl, data)
}

// renderStatus renders with an explicit status, e.g. 422 for a form with errors.
func renderStatus(c *fiber.Ctx, status int, tmpl string, data fiber.Map) error {
	c.Status(status)
	return render(c, tmpl, data)
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func setFlash(c *fiber.Ctx, kind, msg string) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func popFlash(c *fiber.Ctx) (Flash, bool) {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return Flash{}, false
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return Flash{}, false
	}
	kind, msg, ok := strings.Cut(v, "|")
	if !ok || msg == "" {
		return Flash{}, false
	}
	return Flash{Kind: kind, Message: msg}, true
}

func loadFailed(what string) Flash {
	return Flash{Kind: "error", Message: "Failed to load " + what}
}

func fieldErrors(err error) (validate.FieldErrors, bool) {
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Pager is the template view of a listing.Page without its items.
type Pager struct {
	Page, TotalPages, Total int
	PrevURL, NextURL        string
}

// paginate pages items by the ?page= query value and keeps the other query
// parameters in the prev/next links.
func paginate[T any](c *fiber.Ctx, items []T) ([]T, Pager) {
	p := listing.Paginate(items, validate.Page(c.Query("page")), listing.DefaultPageSize)
	pg := Pager{Page: p.Page, TotalPages: p.TotalPages, Total: p.Total}
	if p.HasPrev() {
		pg.PrevURL = pageURL(c, p.Prev())
	}
	if p.HasNext() {
		pg.NextURL = pageURL(c, p.Next())
	}
	return p.Items, pg
}

func pageURL(c *fiber.Ctx, n int) string {
	q, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	q.Set("page", strconv.Itoa(n))
	return c.Path() + "?" + q.Encode()
}
