package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LeadRepo struct{ db *sqlx.DB }

func NewLeadRepo(db *sqlx.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadCols = `id,client_id,full_name,mobile,email,source,status,assigned_to,notes,patient_id,
  COALESCE(created_at,'') AS created_at,COALESCE(updated_at,'') AS updated_at,converted_at`

func (r *LeadRepo) List(ctx context.Context, clientID string) ([]domain.Lead, error) {
	var out []domain.Lead
	err := r.db.SelectContext(ctx, &out, `SELECT `+leadCols+` FROM leads WHERE client_id=? ORDER BY created_at DESC, full_name`, clientID)
	return out, err
}

func (r *LeadRepo) ByID(ctx context.Context, clientID, id string) (*domain.Lead, error) {
	var l domain.Lead
	if err := r.db.GetContext(ctx, &l, `SELECT `+leadCols+` FROM leads WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func addEvent(ctx context.Context, tx *sqlx.Tx, leadID, kind, value, actor string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO lead_events(id,lead_id,kind,value,actor) VALUES(?,?,?,?,?)`,
		uuid.NewString(), leadID, kind, value, actor)
	return err
}

// Create stores the lead with its first status event.
func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead, actor string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO leads(id,client_id,full_name,mobile,email,source,status,assigned_to,notes)
		VALUES(:id,:client_id,:full_name,:mobile,:email,:source,:status,:assigned_to,:notes)`, l); err != nil {
		return err
	}
	if err := addEvent(ctx, tx, l.ID, "status", l.Status, actor); err != nil {
		return err
	}
	if l.Notes != "" {
		if err := addEvent(ctx, tx, l.ID, "note", l.Notes, actor); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateStatus fails with ErrNotFound once the lead is converted or dropped.
func (r *LeadRepo) UpdateStatus(ctx context.Context, clientID, id, status, actor string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE leads SET status=?, updated_at=CURRENT_TIMESTAMP WHERE client_id=? AND id=? AND status NOT IN ('converted','dropped')`, status, clientID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := addEvent(ctx, tx, id, "status", status, actor); err != nil {
		return err
	}
	return tx.Commit()
}

// AddNote replaces the lead's current note and appends it to the history.
func (r *LeadRepo) AddNote(ctx context.Context, clientID, id, note, actor string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE leads SET notes=?, updated_at=CURRENT_TIMESTAMP WHERE client_id=? AND id=?`, note, clientID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := addEvent(ctx, tx, id, "note", note, actor); err != nil {
		return err
	}
	return tx.Commit()
}

// Convert registers the lead as a patient and marks it converted in one tx.
func (r *LeadRepo) Convert(ctx context.Context, clientID, id string, p *domain.Patient, actor string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertPatient(ctx, tx, p); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE leads SET status='converted', patient_id=?, converted_at=CURRENT_TIMESTAMP, updated_at=CURRENT_TIMESTAMP
		WHERE client_id=? AND id=? AND status NOT IN ('converted','dropped')`, p.ID, clientID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := addEvent(ctx, tx, id, "status", domain.LeadConverted, actor); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *LeadRepo) Events(ctx context.Context, leadID string) ([]domain.LeadEvent, error) {
	var out []domain.LeadEvent
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,lead_id,kind,value,actor,COALESCE(created_at,'') AS created_at
		FROM lead_events WHERE lead_id=? ORDER BY created_at, rowid`, leadID)
	return out, err
}

// Assignees lists the distinct assignedTo values in use.
func (r *LeadRepo) Assignees(ctx context.Context, clientID string) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT assigned_to FROM leads WHERE client_id=? AND assigned_to<>'' ORDER BY assigned_to`, clientID)
	return out, err
}
