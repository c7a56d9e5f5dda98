package repos

import (
	"context"

	"hospverse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type PhotoRepo struct{ db *sqlx.DB }

func NewPhotoRepo(db *sqlx.DB) *PhotoRepo { return &PhotoRepo{db: db} }

func (r *PhotoRepo) Sessions(ctx context.Context, clientID string) ([]domain.PhotoSession, error) {
	var out []domain.PhotoSession
	err := r.db.SelectContext(ctx, &out, `
		SELECT id,client_id,patient_name,treatment,session_date,photo_count
		FROM photo_sessions WHERE client_id=? ORDER BY session_date DESC, patient_name`, clientID)
	return out, err
}

func (r *PhotoRepo) CreateSession(ctx context.Context, s *domain.PhotoSession) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO photo_sessions(id,client_id,patient_name,treatment,session_date,photo_count)
		VALUES(:id,:client_id,:patient_name,:treatment,:session_date,0)`, s)
	return err
}

// Photos lists a tenant's photos, optionally for one session.
func (r *PhotoRepo) Photos(ctx context.Context, clientID, sessionID string) ([]domain.Photo, error) {
	q := `SELECT p.id,p.session_id,p.kind,p.file_name,COALESCE(p.uploaded_at,'') AS uploaded_at
	      FROM photos p JOIN photo_sessions s ON s.id=p.session_id
	      WHERE s.client_id=?`
	args := []any{clientID}
	if sessionID != "" {
		q += ` AND p.session_id=?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY p.uploaded_at DESC, p.rowid DESC`
	var out []domain.Photo
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

// AddPhoto records the photo metadata and bumps the session's count.
func (r *PhotoRepo) AddPhoto(ctx context.Context, clientID string, p *domain.Photo) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE photo_sessions SET photo_count=photo_count+1 WHERE client_id=? AND id=?`, clientID, p.SessionID)
	if err := oneRow(res, err); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO photos(id,session_id,kind,file_name) VALUES(?,?,?,?)`,
		p.ID, p.SessionID, p.Kind, p.FileName); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PhotoRepo) DeletePhoto(ctx context.Context, clientID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionID string
	if err := tx.GetContext(ctx, &sessionID, `
		SELECT p.session_id FROM photos p JOIN photo_sessions s ON s.id=p.session_id
		WHERE s.client_id=? AND p.id=?`, clientID, id); err != nil {
		return notFound(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE photo_sessions SET photo_count=MAX(photo_count-1,0) WHERE id=?`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}
