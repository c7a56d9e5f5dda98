package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type PatientRepo struct{ db *sqlx.DB }

func NewPatientRepo(db *sqlx.DB) *PatientRepo { return &PatientRepo{db: db} }

const patientCols = `id,client_id,full_name,phone,email,gender,date_of_birth,COALESCE(registered_at,'') AS registered_at`

func (r *PatientRepo) Create(ctx context.Context, p *domain.Patient) error {
	return insertPatient(ctx, r.db, p)
}

// insertPatient is shared with lead conversion, which runs inside its own tx.
func insertPatient(ctx context.Context, ex sqlx.ExtContext, p *domain.Patient) error {
	_, err := sqlx.NamedExecContext(ctx, ex, `
		INSERT INTO patients(id,client_id,full_name,phone,email,gender,date_of_birth)
		VALUES(:id,:client_id,:full_name,:phone,:email,:gender,:date_of_birth)`, p)
	return err
}

func (r *PatientRepo) List(ctx context.Context, clientID string) ([]domain.Patient, error) {
	var out []domain.Patient
	err := r.db.SelectContext(ctx, &out, `SELECT `+patientCols+` FROM patients WHERE client_id=? ORDER BY registered_at DESC, full_name`, clientID)
	return out, err
}

func (r *PatientRepo) ByID(ctx context.Context, clientID, id string) (*domain.Patient, error) {
	var p domain.Patient
	if err := r.db.GetContext(ctx, &p, `SELECT `+patientCols+` FROM patients WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CountRegisteredOn counts patients registered on day (YYYY-MM-DD).
func (r *PatientRepo) CountRegisteredOn(ctx context.Context, clientID, day string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM patients WHERE client_id=? AND date(registered_at)=?`, clientID, day)
	return n, err
}
