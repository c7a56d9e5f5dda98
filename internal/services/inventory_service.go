package services

import (
	"context"
	"strings"

	"hospverse/internal/domain"
	"hospverse/internal/listing"
	"hospverse/internal/repos"
	"hospverse/internal/validate"
)

type InventoryService struct {
	Products *repos.ProductRepo
	Clock    Clock
}

type ProductFilter struct {
	Category   string
	StockLevel string // low|normal|high
	Q          string
}

type StockInput struct {
	Qty    string `form:"qty" json:"qty"`
	Reason string `form:"reason" json:"reason" validate:"max=200"`
}

type InventoryStats struct {
	TotalProducts int     `json:"totalProducts"`
	LowStock      int     `json:"lowStock"`
	ExpiringSoon  int     `json:"expiringSoon"`
	StockValue    float64 `json:"totalValue"`
}

func (s *InventoryService) List(ctx context.Context, clientID string, f ProductFilter) ([]domain.Product, error) {
	all, err := s.Products.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return listing.Apply(all,
		listing.Equal(f.Category, func(p domain.Product) string { return p.Category }),
		listing.Equal(f.StockLevel, func(p domain.Product) string { return p.StockLevel() }),
		listing.Search(f.Q,
			func(p domain.Product) string { return p.Name },
			func(p domain.Product) string { return p.BatchNumber },
			func(p domain.Product) string { return p.Vendor },
		),
	), nil
}

func (s *InventoryService) Product(ctx context.Context, clientID, id string) (*domain.Product, []domain.StockLog, error) {
	p, err := s.Products.ByID(ctx, clientID, id)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.Products.Logs(ctx, id, 20)
	if err != nil {
		return nil, nil, err
	}
	return p, logs, nil
}

// AddStock receives qty units. Quantities above 10000 clamp.
func (s *InventoryService) AddStock(ctx context.Context, clientID, id, actor string, in StockInput) (int, error) {
	return s.adjust(ctx, clientID, id, actor, in, 1, "restock")
}

// Deduct issues qty units; it fails with ErrInsufficientStock rather than going negative.
func (s *InventoryService) Deduct(ctx context.Context, clientID, id, actor string, in StockInput) (int, error) {
	return s.adjust(ctx, clientID, id, actor, in, -1, "usage")
}

func (s *InventoryService) adjust(ctx context.Context, clientID, id, actor string, in StockInput, sign int, fallback string) (int, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	qty, ok := validate.Qty(in.Qty)
	if !ok {
		return 0, validate.FieldErrors{"qty": "Please enter a quantity of at least 1"}
	}
	reason := validate.CleanText(in.Reason)
	if reason == "" {
		reason = fallback
	}
	return s.Products.AdjustStock(ctx, clientID, id, sign*qty, reason, actor)
}

func (s *InventoryService) Categories(ctx context.Context, clientID string) ([]string, error) {
	all, err := s.Products.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range all {
		if c := strings.TrimSpace(p.Category); c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InventoryService) Stats(ctx context.Context, clientID string) (InventoryStats, error) {
	var st InventoryStats
	all, err := s.Products.List(ctx, clientID)
	if err != nil {
		return st, err
	}
	soon := s.Clock.now().AddDate(0, 3, 0).Format(dateLayout)
	st.TotalProducts = len(all)
	for _, p := range all {
		if p.StockLevel() == "low" {
			st.LowStock++
		}
		if p.ExpiryDate != "" && p.ExpiryDate <= soon {
			st.ExpiringSoon++
		}
		st.StockValue += float64(p.CurrentStock) * p.UnitPrice
	}
	return st, nil
}
