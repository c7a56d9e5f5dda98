package repos

import (
	"context"
	"strings"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type StaffRepo struct{ db *sqlx.DB }

func NewStaffRepo(db *sqlx.DB) *StaffRepo { return &StaffRepo{db: db} }

const staffCols = `id,client_id,name,email,phone,role,department,branch,status,join_date,salary`

// StaffFilter values of "" or "all" do not filter.
type StaffFilter struct {
	Branch string
	Role   string
	Status string
	Q      string
}

func isAll(v string) bool { return v == "" || strings.EqualFold(v, "all") }

// Search filters in SQL. Q matches name, email or phone as a case-insensitive substring.
func (r *StaffRepo) Search(ctx context.Context, clientID string, f StaffFilter) ([]domain.Staff, error) {
	where := `client_id = ?`
	args := []any{clientID}
	if !isAll(f.Branch) {
		where += ` AND LOWER(branch) = LOWER(?)`
		args = append(args, f.Branch)
	}
	if !isAll(f.Role) {
		where += ` AND LOWER(role) = LOWER(?)`
		args = append(args, f.Role)
	}
	if !isAll(f.Status) {
		where += ` AND LOWER(status) = LOWER(?)`
		args = append(args, f.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	var out []domain.Staff
	err := r.db.SelectContext(ctx, &out, `SELECT `+staffCols+` FROM staff WHERE `+where+` ORDER BY LOWER(name)`, args...)
	return out, err
}

func (r *StaffRepo) ByID(ctx context.Context, clientID, id string) (*domain.Staff, error) {
	var s domain.Staff
	if err := r.db.GetContext(ctx, &s, `SELECT `+staffCols+` FROM staff WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *StaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO staff(`+staffCols+`)
		VALUES(:id,:client_id,:name,:email,:phone,:role,:department,:branch,:status,:join_date,:salary)`, s)
	return err
}

func (r *StaffRepo) Update(ctx context.Context, s *domain.Staff) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE staff SET name=:name, email=:email, phone=:phone, role=:role, department=:department,
		  branch=:branch, status=:status, salary=:salary
		WHERE client_id=:client_id AND id=:id`, s)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Branches lists the distinct branch names of a tenant's staff.
func (r *StaffRepo) Branches(ctx context.Context, clientID string) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT branch FROM staff WHERE client_id=? AND branch<>'' ORDER BY branch`, clientID)
	return out, err
}
