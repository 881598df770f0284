package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// SQLiteUserProfileRepo implements the user_profiles table on the local state database.
type SQLiteUserProfileRepo struct {
	db db.DBTX
}

// NewSQLiteUserProfileRepo creates a new SQLiteUserProfileRepo.
func NewSQLiteUserProfileRepo(conn db.DBTX) *SQLiteUserProfileRepo {
	return &SQLiteUserProfileRepo{db: conn}
}

func (r *SQLiteUserProfileRepo) Get(ctx context.Context, ownerID string) (*domain.Profile, error) {
	query := `SELECT id, email, full_name, baby_name, baby_birth_date, created_at, updated_at
		FROM user_profiles WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, ownerID)

	var p domain.Profile
	var fullName, babyName, birth sql.NullString
	var createdStr, updatedStr string
	err := row.Scan(&p.OwnerID, &p.Email, &fullName, &babyName, &birth, &createdStr, &updatedStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user profile: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user profile: %w", err)
	}
	p.DisplayName = fullName.String
	p.ChildName = babyName.String
	p.ChildBirthDate = parseNullableTime(birth)
	if p.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}

func (r *SQLiteUserProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO user_profiles (id, email, full_name, baby_name, baby_birth_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			baby_name = excluded.baby_name,
			baby_birth_date = excluded.baby_birth_date,
			updated_at = excluded.updated_at`
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, query,
		p.OwnerID,
		p.Email,
		nullableString(p.DisplayName),
		nullableString(p.ChildName),
		nullableTimeToString(p.ChildBirthDate),
		now,
		now,
	)
	if err != nil {
		return classifyWriteError("upserting user profile", err)
	}
	return nil
}
