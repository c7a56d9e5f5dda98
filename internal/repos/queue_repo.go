package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type QueueRepo struct{ db *sqlx.DB }

func NewQueueRepo(db *sqlx.DB) *QueueRepo { return &QueueRepo{db: db} }

const queueCols = `id,client_id,queue_number,patient_name,phone,priority,status,doctor_name,COALESCE(checked_in_at,'') AS checked_in_at`

// ListOn returns the day's queue, urgent entries first.
func (r *QueueRepo) ListOn(ctx context.Context, clientID, day string) ([]domain.QueueEntry, error) {
	var out []domain.QueueEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+queueCols+` FROM queue_entries
		WHERE client_id=? AND queue_date=?
		ORDER BY CASE priority WHEN 'urgent' THEN 0 ELSE 1 END, queue_number`, clientID, day)
	return out, err
}

// Add appends e to the day's queue and assigns the next queue number.
func (r *QueueRepo) Add(ctx context.Context, day string, e *domain.QueueEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertQueueEntry(ctx, tx, day, e); err != nil {
		return err
	}
	return tx.Commit()
}

func insertQueueEntry(ctx context.Context, tx *sqlx.Tx, day string, e *domain.QueueEntry) error {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM queue_entries WHERE client_id=? AND queue_date=?`, e.ClientID, day); err != nil {
		return err
	}
	e.QueueNumber = n + 1
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries(id,client_id,queue_date,queue_number,patient_name,phone,priority,status,doctor_name)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		e.ID, e.ClientID, day, e.QueueNumber, e.PatientName, e.Phone, e.Priority, e.Status, e.DoctorName); err != nil {
		return err
	}
	return tx.GetContext(ctx, &e.CheckedInAt, `SELECT checked_in_at FROM queue_entries WHERE id=?`, e.ID)
}

func (r *QueueRepo) ByID(ctx context.Context, clientID, id string) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	if err := r.db.GetContext(ctx, &e, `SELECT `+queueCols+` FROM queue_entries WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// UpdateStatus moves the entry from one status to another. It fails with
// ErrNotFound when the entry is gone or no longer in the from status.
func (r *QueueRepo) UpdateStatus(ctx context.Context, clientID, id, from, to string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE queue_entries SET status=? WHERE client_id=? AND id=? AND status=?`, to, clientID, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
