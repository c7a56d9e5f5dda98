package handlers

import (
	"context"
	"errors"
	"fmt"

	applog "hospverse/internal/log"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	Inv      *services.InventoryService
	Activity *services.AdminService
}

// GET /inventory
func (h *InventoryHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Pharmacy Dashboard"}
	st, err := h.Inv.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "inventory.stats.fail", err, nil)
		data["Flash"] = loadFailed("inventory stats")
	}
	data["Cards"] = []card{
		{"Products", fmt.Sprint(st.TotalProducts)},
		{"Low Stock", fmt.Sprint(st.LowStock)},
		{"Expiring in 90 days", fmt.Sprint(st.ExpiringSoon)},
		{"Stock Value", money(st.StockValue)},
	}
	low, err := h.Inv.List(c.UserContext(), u.ClientID, services.ProductFilter{StockLevel: "low"})
	if err != nil {
		applog.Error(c, "inventory.products.list.fail", err, nil)
		data["Flash"] = loadFailed("products")
	}
	t := table{Caption: "Reorder soon", Headers: []string{"Product", "Stock", "Minimum", "Vendor"}}
	for _, p := range low {
		t.Rows = append(t.Rows, []string{p.Name, fmt.Sprint(p.CurrentStock), fmt.Sprint(p.MinStockLevel), p.Vendor})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /inventory/products
func (h *InventoryHandler) Products(c *fiber.Ctx) error {
	return h.productPage(c, false)
}

// GET /inventory/stock
func (h *InventoryHandler) Stock(c *fiber.Ctx) error {
	return h.productPage(c, true)
}

func (h *InventoryHandler) productPage(c *fiber.Ctx, stock bool) error {
	u := currentUser(c)
	f := services.ProductFilter{Category: c.Query("category"), StockLevel: c.Query("stock"), Q: c.Query("q")}
	data := fiber.Map{"Filter": f, "Stock": stock, "Levels": []string{"low", "normal", "high"}}
	cats, err := h.Inv.Categories(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "inventory.categories.fail", err, nil)
	}
	data["Categories"] = cats
	items, err := h.Inv.List(c.UserContext(), u.ClientID, f)
	if err != nil {
		applog.Error(c, "inventory.products.list.fail", err, nil)
		data["Flash"] = loadFailed("products")
	}
	data["Items"], data["Pager"] = paginate(c, items)
	return render(c, "inventory_products", data)
}

// POST /inventory/stock/:id/add
func (h *InventoryHandler) AddStock(c *fiber.Ctx) error {
	return h.adjust(c, "add", h.Inv.AddStock)
}

// POST /inventory/stock/:id/deduct
func (h *InventoryHandler) Deduct(c *fiber.Ctx) error {
	return h.adjust(c, "deduct", h.Inv.Deduct)
}

// stockFunc is InventoryService.AddStock or Deduct.
type stockFunc func(ctx context.Context, clientID, id, actor string, in services.StockInput) (int, error)

func (h *InventoryHandler) adjust(c *fiber.Ctx, op string, fn stockFunc) error {
	u := currentUser(c)
	id := c.Params("id")
	in := services.StockInput{Qty: c.FormValue("qty"), Reason: c.FormValue("reason")}
	n, err := fn(c.UserContext(), u.ClientID, id, u.Name, in)
	if fe, ok := fieldErrors(err); ok {
		setFlash(c, "error", fe.Error())
		return c.Redirect("/inventory/stock")
	}
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		setFlash(c, "error", "Not enough stock to deduct that quantity")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Product not found")
	case err != nil:
		applog.Error(c, "inventory.stock."+op+".fail", err, map[string]any{"product_id": id})
		setFlash(c, "error", "Could not update stock")
	default:
		applog.Audit(c, "inventory.stock."+op, map[string]any{"product_id": id, "qty": in.Qty, "stock": n})
		recordActivity(c, h.Activity, u, "inventory", fmt.Sprintf("Stock %s for %s, now %d", op, id, n), "update")
		setFlash(c, "success", fmt.Sprintf("Stock updated to %d", n))
	}
	return c.Redirect("/inventory/stock")
}
