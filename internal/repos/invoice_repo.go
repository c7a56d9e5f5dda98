package repos

import (
	"context"
	"errors"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

var ErrOverpayment = errors.New("payment exceeds balance")

type InvoiceRepo struct{ db *sqlx.DB }

func NewInvoiceRepo(db *sqlx.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

const invoiceCols = `id,client_id,patient_name,treatment,amount,paid_amount,status,method,COALESCE(created_at,'') AS created_at,paid_at`

func (r *InvoiceRepo) List(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	var out []domain.Invoice
	err := r.db.SelectContext(ctx, &out, `SELECT `+invoiceCols+` FROM invoices WHERE client_id=? ORDER BY created_at DESC, id`, clientID)
	return out, err
}

func (r *InvoiceRepo) ByID(ctx context.Context, clientID, id string) (*domain.Invoice, error) {
	return invoiceByID(ctx, r.db, clientID, id)
}

func invoiceByID(ctx context.Context, q sqlx.QueryerContext, clientID, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := sqlx.GetContext(ctx, q, &inv, `SELECT `+invoiceCols+` FROM invoices WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO invoices(id,client_id,patient_name,treatment,amount,paid_amount,status,method)
		VALUES(:id,:client_id,:patient_name,:treatment,:amount,:paid_amount,:status,:method)`, inv)
	return err
}

// RecordPayment adds amount to the paid total. The invoice becomes paid once
// the total reaches the amount, partial before that.
func (r *InvoiceRepo) RecordPayment(ctx context.Context, clientID, id string, amount float64, method string) (*domain.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	inv, err := invoiceByID(ctx, tx, clientID, id)
	if err != nil {
		return nil, err
	}
	if amount > inv.Balance()+0.005 {
		return nil, ErrOverpayment
	}
	inv.PaidAmount += amount
	inv.Method = method
	inv.Status = domain.InvoicePartial
	if inv.PaidAmount >= inv.Amount-0.005 {
		inv.Status = domain.InvoicePaid
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices SET paid_amount=?, status=?, method=?, paid_at=CURRENT_TIMESTAMP
		WHERE client_id=? AND id=?`, inv.PaidAmount, inv.Status, inv.Method, clientID, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) MarkRefunded(ctx context.Context, clientID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET status='refunded' WHERE client_id=? AND id=? AND paid_amount>0`, clientID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CollectedOn sums payments touched on day.
func (r *InvoiceRepo) CollectedOn(ctx context.Context, clientID, day string) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(paid_amount),0) FROM invoices
		WHERE client_id=? AND status IN ('paid','partial') AND date(paid_at)=?`, clientID, day)
	return total, err
}
