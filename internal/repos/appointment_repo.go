package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AppointmentRepo struct{ db *sqlx.DB }

func NewAppointmentRepo(db *sqlx.DB) *AppointmentRepo { return &AppointmentRepo{db: db} }

const apptCols = `id,client_id,patient_id,patient_name,phone,doctor_id,doctor_name,date,time,treatment,status`

func (r *AppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO appointments(`+apptCols+`)
		VALUES(:id,:client_id,:patient_id,:patient_name,:phone,:doctor_id,:doctor_name,:date,:time,:treatment,:status)`, a)
	return err
}

func (r *AppointmentRepo) List(ctx context.Context, clientID string) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := r.db.SelectContext(ctx, &out, `SELECT `+apptCols+` FROM appointments WHERE client_id=? ORDER BY date DESC, time`, clientID)
	return out, err
}

func (r *AppointmentRepo) ListOn(ctx context.Context, clientID, day string) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := r.db.SelectContext(ctx, &out, `SELECT `+apptCols+` FROM appointments WHERE client_id=? AND date=? ORDER BY time`, clientID, day)
	return out, err
}

func (r *AppointmentRepo) ByID(ctx context.Context, clientID, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := r.db.GetContext(ctx, &a, `SELECT `+apptCols+` FROM appointments WHERE client_id=? AND id=?`, clientID, id); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpdateStatus moves the appointment from one status to another. It fails
// with ErrNotFound when the appointment is gone or no longer in from.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, clientID, id, from, to string) error {
	return updateApptStatus(ctx, r.db, clientID, id, from, to)
}

// CheckIn marks a confirmed appointment checked-in and queues e for day in
// one transaction.
func (r *AppointmentRepo) CheckIn(ctx context.Context, clientID, id, day string, e *domain.QueueEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateApptStatus(ctx, tx, clientID, id, "confirmed", "checked-in"); err != nil {
		return err
	}
	if err := insertQueueEntry(ctx, tx, day, e); err != nil {
		return err
	}
	return tx.Commit()
}

func updateApptStatus(ctx context.Context, ex sqlx.ExecerContext, clientID, id, from, to string) error {
	res, err := ex.ExecContext(ctx, `UPDATE appointments SET status=? WHERE client_id=? AND id=? AND status=?`, to, clientID, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BookedTimes lists the taken HH:MM slots for a day. An empty doctorID covers all doctors.
func (r *AppointmentRepo) BookedTimes(ctx context.Context, clientID, day, doctorID string) ([]string, error) {
	q := `SELECT time FROM appointments WHERE client_id=? AND date=? AND status NOT IN ('cancelled','no-show')`
	args := []any{clientID, day}
	if doctorID != "" {
		q += ` AND doctor_id=?`
		args = append(args, doctorID)
	}
	var out []string
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}
