package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/domain"
)

const currentAuthRow = "current"

// SQLiteAuthSessionRepo keeps the single signed-in auth session.
type SQLiteAuthSessionRepo struct {
	db db.DBTX
}

func NewSQLiteAuthSessionRepo(conn db.DBTX) *SQLiteAuthSessionRepo {
	return &SQLiteAuthSessionRepo{db: conn}
}

// Load returns the stored session and the backend kind that issued it.
func (r *SQLiteAuthSessionRepo) Load(ctx context.Context) (*domain.AuthSession, string, error) {
	query := `SELECT access_token, refresh_token, expires_at, user_id, email, backend
		FROM auth_session WHERE id = ?`
	var s domain.AuthSession
	var expires sql.NullString
	var backend string
	err := r.db.QueryRowContext(ctx, query, currentAuthRow).Scan(
		&s.AccessToken, &s.RefreshToken, &expires, &s.User.ID, &s.User.Email, &backend,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", fmt.Errorf("auth session: %w", domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("scanning auth session: %w", err)
	}
	if t := parseNullableTime(expires); t != nil {
		s.ExpiresAt = *t
	}
	return &s, backend, nil
}

func (r *SQLiteAuthSessionRepo) Save(ctx context.Context, s *domain.AuthSession, backend string) error {
	var expires interface{}
	if !s.ExpiresAt.IsZero() {
		expires = formatTime(s.ExpiresAt)
	}
	query := `INSERT INTO auth_session (id, access_token, refresh_token, expires_at, user_id, email, backend, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			user_id = excluded.user_id,
			email = excluded.email,
			backend = excluded.backend,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		currentAuthRow, s.AccessToken, s.RefreshToken, expires, s.User.ID, s.User.Email, backend, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("saving auth session: %w", err)
	}
	return nil
}

func (r *SQLiteAuthSessionRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_session WHERE id = ?`, currentAuthRow); err != nil {
		return fmt.Errorf("clearing auth session: %w", err)
	}
	return nil
}
