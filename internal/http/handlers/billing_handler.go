package handlers

import (
	"errors"
	"fmt"

	"hospverse/internal/domain"
	applog "hospverse/internal/log"
	"hospverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	Billing  *services.BillingService
	Activity *services.AdminService
}

func money(v float64) string { return fmt.Sprintf("₹%.2f", v) }

// GET /billing
func (h *BillingHandler) Dashboard(c *fiber.Ctx) error {
	u := currentUser(c)
	data := fiber.Map{"Title": "Billing Dashboard"}
	st, err := h.Billing.Stats(c.UserContext(), u.ClientID)
	if err != nil {
		applog.Error(c, "billing.stats.fail", err, nil)
		data["Flash"] = loadFailed("billing stats")
	}
	data["Cards"] = []card{
		{"Collected Today", money(st.CollectedToday)},
		{"Outstanding", money(st.Outstanding)},
		{"Open Invoices", fmt.Sprint(st.Pending)},
		{"Refunded", fmt.Sprint(st.RefundedInvoices)},
	}
	open, err := h.Billing.List(c.UserContext(), u.ClientID, services.InvoiceFilter{Status: domain.InvoicePending})
	if err != nil {
		applog.Error(c, "billing.invoices.list.fail", err, nil)
		data["Flash"] = loadFailed("invoices")
	}
	t := table{Caption: "Awaiting payment", Headers: []string{"Invoice", "Patient", "Treatment", "Amount"}}
	for _, i := range open {
		t.Rows = append(t.Rows, []string{i.ID, i.PatientName, i.Treatment, money(i.Amount)})
	}
	data["Table"] = t
	return render(c, "dashboard", data)
}

// GET /billing/invoices
func (h *BillingHandler) Invoices(c *fiber.Ctx) error {
	return h.invoicePage(c, fiber.StatusOK, false, services.InvoiceInput{}, nil)
}

// GET /billing/payments lists invoices that can still take or return money.
func (h *BillingHandler) Payments(c *fiber.Ctx) error {
	return h.invoicePage(c, fiber.StatusOK, true, services.InvoiceInput{}, nil)
}

func (h *BillingHandler) invoicePage(c *fiber.Ctx, status int, payments bool, in services.InvoiceInput, fe map[string]string) error {
	u := currentUser(c)
	f := services.InvoiceFilter{Status: c.Query("status"), Method: c.Query("method"), Q: c.Query("q")}
	data := fiber.Map{
		"Filter": f, "Form": in, "Errors": fe, "Payments": payments,
		"Statuses": []string{domain.InvoicePending, domain.InvoicePartial, domain.InvoicePaid, domain.InvoiceRefunded},
		"Methods":  []string{"cash", "card", "upi", "insurance"},
	}
	items, err := h.Billing.List(c.UserContext(), u.ClientID, f)
	if err != nil {
		applog.Error(c, "billing.invoices.list.fail", err, nil)
		data["Flash"] = loadFailed("invoices")
	}
	data["Items"], data["Pager"] = paginate(c, items)
	return renderStatus(c, status, "billing_invoices", data)
}

// POST /billing/invoices
func (h *BillingHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	var in services.InvoiceInput
	if err := c.BodyParser(&in); err != nil {
		return h.invoicePage(c, fiber.StatusUnprocessableEntity, false, in, map[string]string{"amount": "Please enter an amount"})
	}
	inv, err := h.Billing.Create(c.UserContext(), u.ClientID, in)
	if fe, ok := fieldErrors(err); ok {
		return h.invoicePage(c, fiber.StatusUnprocessableEntity, false, in, fe)
	}
	if err != nil {
		applog.Error(c, "billing.invoices.create.fail", err, nil)
		return err
	}
	applog.Audit(c, "billing.invoices.create", map[string]any{"invoice_id": inv.ID, "amount": inv.Amount})
	recordActivity(c, h.Activity, u, "billing", "Raised invoice for "+inv.PatientName, "create")
	setFlash(c, "success", "Invoice created")
	return c.Redirect("/billing/invoices")
}

// POST /billing/invoices/:id/pay
func (h *BillingHandler) Pay(c *fiber.Ctx) error {
	u := currentUser(c)
	id := c.Params("id")
	var in services.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		setFlash(c, "error", "Please enter an amount")
		return c.Redirect("/billing/payments")
	}
	inv, err := h.Billing.Pay(c.UserContext(), u.ClientID, id, in)
	if fe, ok := fieldErrors(err); ok {
		setFlash(c, "error", fe.Error())
		return c.Redirect("/billing/payments")
	}
	switch {
	case errors.Is(err, services.ErrOverpayment):
		setFlash(c, "error", "Payment is more than the balance due")
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "This invoice cannot take payments")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Invoice not found")
	case err != nil:
		applog.Error(c, "billing.invoices.pay.fail", err, map[string]any{"invoice_id": id})
		setFlash(c, "error", "Could not record the payment")
	default:
		applog.Audit(c, "billing.invoices.pay", map[string]any{"invoice_id": id, "amount": in.Amount, "status": inv.Status})
		recordActivity(c, h.Activity, u, "billing", fmt.Sprintf("Recorded %s from %s", money(in.Amount), inv.PatientName), "update")
		setFlash(c, "success", "Payment recorded")
	}
	return c.Redirect("/billing/payments")
}

// POST /billing/invoices/:id/refund
func (h *BillingHandler) Refund(c *fiber.Ctx) error {
	u := currentUser(c)
	id := c.Params("id")
	err := h.Billing.Refund(c.UserContext(), u.ClientID, id)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		setFlash(c, "error", "Only paid invoices can be refunded")
	case errors.Is(err, services.ErrNotFound):
		setFlash(c, "error", "Invoice not found")
	case err != nil:
		applog.Error(c, "billing.invoices.refund.fail", err, map[string]any{"invoice_id": id})
		setFlash(c, "error", "Could not refund the invoice")
	default:
		applog.Audit(c, "billing.invoices.refund", map[string]any{"invoice_id": id})
		recordActivity(c, h.Activity, u, "billing", "Refunded invoice "+id, "update")
		setFlash(c, "success", "Invoice refunded")
	}
	return c.Redirect("/billing/payments")
}
