package repos

import (
	"context"
	"database/sql"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ActivityRepo struct{ db *sqlx.DB }

func NewActivityRepo(db *sqlx.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Record(ctx context.Context, a *domain.ActivityLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO activity_logs(id,client_id,user_name,user_role,module,action,action_type,ip_address)
		VALUES(:id,:client_id,:user_name,:user_role,:module,:action,:action_type,:ip_address)`, a)
	return err
}

// List returns the newest entries first, capped at limit.
func (r *ActivityRepo) List(ctx context.Context, clientID string, limit int) ([]domain.ActivityLog, error) {
	var out []domain.ActivityLog
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,client_id,user_name,user_role,module,action,action_type,ip_address,COALESCE(ts,'') AS ts
		FROM activity_logs WHERE client_id=? ORDER BY ts DESC, rowid DESC LIMIT ?`, clientID, limit)
	return out, err
}

type SOAPRepo struct{ db *sqlx.DB }

func NewSOAPRepo(db *sqlx.DB) *SOAPRepo { return &SOAPRepo{db: db} }

func (r *SOAPRepo) Create(ctx context.Context, n *domain.SOAPNote) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO soap_notes(id,client_id,appointment_id,patient_name,subjective,objective,assessment,plan)
		VALUES(:id,:client_id,:appointment_id,:patient_name,:subjective,:objective,:assessment,:plan)`, n)
	return err
}

func (r *SOAPRepo) List(ctx context.Context, clientID string, limit int) ([]domain.SOAPNote, error) {
	var out []domain.SOAPNote
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,client_id,appointment_id,patient_name,subjective,objective,assessment,plan,COALESCE(created_at,'') AS created_at
		FROM soap_notes WHERE client_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, clientID, limit)
	return out, err
}

func oneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
