package handlers

import (
	"hospverse/internal/nav"

	"github.com/gofiber/fiber/v2"
)

// Section renders a portal page that has no dedicated screen yet, titled
// after its sidebar entry.
func Section(c *fiber.Ctx) error {
	r := nav.Resolve(c.Path())
	it, ok := nav.Find(r, c.Path())
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	}
	return render(c, "section", fiber.Map{"Title": it.Title, "Portal": r.DisplayName()})
}
