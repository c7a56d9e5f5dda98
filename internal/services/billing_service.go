package services

import (
	"context"
	"math"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"

	"github.com/google/uuid"
)

type BillingService struct {
	Invoices *repos.InvoiceRepo
	Clock    Clock
}

type InvoiceFilter struct {
	Status string
	Method string
	Q      string
}

type InvoiceInput struct {
	PatientName string  `form:"patient_name" json:"patientName" validate:"required,max=80"`
	Treatment   string  `form:"treatment" json:"treatment" validate:"required,max=80"`
	Amount      float64 `form:"amount" json:"amount" validate:"gt=0,lte=10000000"`
}

type PaymentInput struct {
	Amount float64 `form:"amount" json:"amount" validate:"gt=0"`
	Method string  `form:"method" json:"method" validate:"required,oneof=cash card upi insurance"`
}

type BillingStats struct {
	TotalInvoices    int     `json:"totalInvoices"`
	Pending          int     `json:"pending"`
	Outstanding      float64 `json:"outstandingAmount"`
	CollectedToday   float64 `json:"collectedToday"`
	TotalCollected   float64 `json:"totalCollected"`
	RefundedInvoices int     `json:"refunded"`
}

func (s *BillingService) List(ctx context.Context, clientID string, f InvoiceFilter) ([]domain.Invoice, error) {
	all, err := s.Invoices.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return listing.Apply(all,
		listing.Equal(f.Status, func(i domain.Invoice) string { return i.Status }),
		listing.Equal(f.Method, func(i domain.Invoice) string { return i.Method }),
		listing.Search(f.Q,
			func(i domain.Invoice) string { return i.PatientName },
			func(i domain.Invoice) string { return i.Treatment },
			func(i domain.Invoice) string { return i.ID },
		),
	), nil
}

func (s *BillingService) Create(ctx context.Context, clientID string, in InvoiceInput) (*domain.Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	inv := &domain.Invoice{
		ID: uuid.NewString(), ClientID: clientID,
		PatientName: validate.CleanText(in.PatientName), Treatment: validate.CleanText(in.Treatment),
		Amount: math.Round(in.Amount*100) / 100, Status: domain.InvoicePending,
	}
	if err := s.Invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Pay records a full or partial payment. Refunded and paid invoices take no more money.
func (s *BillingService) Pay(ctx context.Context, clientID, id string, in PaymentInput) (*domain.Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	inv, err := s.Invoices.ByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoicePaid || inv.Status == domain.InvoiceRefunded {
		return nil, ErrInvalidTransition
	}
	return s.Invoices.RecordPayment(ctx, clientID, id, math.Round(in.Amount*100)/100, in.Method)
}

func (s *BillingService) Refund(ctx context.Context, clientID, id string) error {
	inv, err := s.Invoices.ByID(ctx, clientID, id)
	if err != nil {
		return err
	}
	if inv.Status != domain.InvoicePaid && inv.Status != domain.InvoicePartial {
		return ErrInvalidTransition
	}
	return s.Invoices.MarkRefunded(ctx, clientID, id)
}

func (s *BillingService) Stats(ctx context.Context, clientID string) (BillingStats, error) {
	var st BillingStats
	all, err := s.Invoices.List(ctx, clientID)
	if err != nil {
		return st, err
	}
	st.TotalInvoices = len(all)
	for _, i := range all {
		switch i.Status {
		case domain.InvoicePending, domain.InvoicePartial:
			st.Pending++
			st.Outstanding += i.Balance()
			st.TotalCollected += i.PaidAmount
		case domain.InvoicePaid:
			st.TotalCollected += i.PaidAmount
		case domain.InvoiceRefunded:
			st.RefundedInvoices++
		}
	}
	st.CollectedToday, err = s.Invoices.CollectedOn(ctx, clientID, s.Clock.today())
	return st, err
}
