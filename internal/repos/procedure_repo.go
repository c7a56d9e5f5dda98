package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProcedureRepo struct{ db *sqlx.DB }

func NewProcedureRepo(db *sqlx.DB) *ProcedureRepo { return &ProcedureRepo{db: db} }

const procedureCols = `id,client_id,patient_name,procedure_type,doctor_name,technician_name,status,scheduled_at,started_at,completed_at,notes`

func (r *ProcedureRepo) List(ctx context.Context, clientID string) ([]domain.Procedure, error) {
	var out []domain.Procedure
	err := r.db.SelectContext(ctx, &out, `SELECT `+procedureCols+` FROM procedures WHERE client_id=? ORDER BY scheduled_at`, clientID)
	return out, err
}

func (r *ProcedureRepo) ByID(ctx context.Context, clientID, id string) (*domain.Procedure, error) {
	var p domain.Procedure
	if err := r.db.GetContext(ctx, &p, `SELECT `+procedureCols+` FROM procedures WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProcedureRepo) Create(ctx context.Context, p *domain.Procedure) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO procedures(id,client_id,patient_name,procedure_type,doctor_name,technician_name,status,scheduled_at,notes)
		VALUES(:id,:client_id,:patient_name,:procedure_type,:doctor_name,:technician_name,:status,:scheduled_at,:notes)`, p)
	return err
}

// Start moves a scheduled procedure to in-progress.
func (r *ProcedureRepo) Start(ctx context.Context, clientID, id, technician string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE procedures SET status='in-progress', started_at=CURRENT_TIMESTAMP,
		  technician_name=CASE WHEN ?<>'' THEN ? ELSE technician_name END
		WHERE client_id=? AND id=? AND status='scheduled'`, technician, technician, clientID, id)
	return oneRow(res, err)
}

// Complete closes an in-progress procedure with optional notes.
func (r *ProcedureRepo) Complete(ctx context.Context, clientID, id, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE procedures SET status='completed', completed_at=CURRENT_TIMESTAMP,
		  notes=CASE WHEN ?<>'' THEN ? ELSE notes END
		WHERE client_id=? AND id=? AND status='in-progress'`, notes, notes, clientID, id)
	return oneRow(res, err)
}
