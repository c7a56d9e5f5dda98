package repos

import (
	"context"
	"errors"

	"hospverse/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id,client_id,name,category,batch_number,vendor,current_stock,min_stock_level,max_stock_level,expiry_date,unit_price`

func (r *ProductRepo) List(ctx context.Context, clientID string) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products WHERE client_id=? ORDER BY LOWER(name)`, clientID)
	return out, err
}

func (r *ProductRepo) ByID(ctx context.Context, clientID, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// AdjustStock applies delta and writes a stock log row in one tx. Stock never
// goes below zero.
func (r *ProductRepo) AdjustStock(ctx context.Context, clientID, id string, delta int, reason, actor string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur int
	if err := tx.GetContext(ctx, &cur, `SELECT current_stock FROM products WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return 0, notFound(err)
	}
	next := cur + delta
	if next < 0 {
		return cur, ErrInsufficientStock
	}
	if _, err := tx.ExecContext(ctx, `UPDATE products SET current_stock=? WHERE client_id=? AND id=?`, next, clientID, id); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO stock_logs(id,product_id,change,reason,actor) VALUES(?,?,?,?,?)`,
		uuid.NewString(), id, delta, reason, actor); err != nil {
		return 0, err
	}
	return next, tx.Commit()
}

func (r *ProductRepo) Logs(ctx context.Context, productID string, limit int) ([]domain.StockLog, error) {
	var out []domain.StockLog
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,product_id,change,reason,actor,COALESCE(created_at,'') AS created_at
		FROM stock_logs WHERE product_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, productID, limit)
	return out, err
}

func (r *ProductRepo) CountLow(ctx context.Context, clientID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE client_id=? AND current_stock<=min_stock_level`, clientID)
	return n, err
}
