package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps session values in the session_values table.
type SQLStore struct{ db *sqlx.DB }

func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, sid, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM session_values WHERE sid=? AND key=?`, sid, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Set(ctx context.Context, sid, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_values(sid,key,value,updated_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(sid,key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		sid, key, value)
	return err
}

func (s *SQLStore) Clear(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE sid=?`, sid)
		return err
	}
	q, args, err := sqlx.In(`DELETE FROM session_values WHERE sid=? AND key IN (?)`, sid, keys)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	return err
}
