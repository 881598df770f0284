package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// SQLiteSessionRepo implements the owner-scoped feeding_sessions table on
// the local state database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

const sessionColumns = `id, start_time, end_time, duration, breast_type, bottle_volume, notes, is_active`

func (r *SQLiteSessionRepo) List(ctx context.Context, ownerID string) ([]domain.FeedingSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM feeding_sessions WHERE user_id = ? ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing feeding sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.FeedingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feeding sessions: %w", err)
	}
	return sessions, nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, ownerID, id string) (*domain.FeedingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM feeding_sessions WHERE id = ? AND user_id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("feeding session %s: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (r *SQLiteSessionRepo) Insert(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	query := `INSERT INTO feeding_sessions (id, user_id, start_time, end_time, duration, breast_type,
		bottle_volume, notes, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		ownerID,
		formatTime(s.StartTime),
		nullableTimeToString(s.EndTime),
		s.Duration,
		string(s.Type),
		nullableIntToValue(s.BottleVolume),
		nullableString(s.Notes),
		boolToInt(s.Active),
		now,
		now,
	)
	if err != nil {
		return classifyWriteError("inserting feeding session", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) Update(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	query := `UPDATE feeding_sessions SET start_time = ?, end_time = ?, duration = ?, breast_type = ?,
		bottle_volume = ?, notes = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		formatTime(s.StartTime),
		nullableTimeToString(s.EndTime),
		s.Duration,
		string(s.Type),
		nullableIntToValue(s.BottleVolume),
		nullableString(s.Notes),
		boolToInt(s.Active),
		nowUTC(),
		s.ID,
		ownerID,
	)
	if err != nil {
		return classifyWriteError("updating feeding session", err)
	}
	return expectOneRow(res, "feeding session "+s.ID)
}

func (r *SQLiteSessionRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeding_sessions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting feeding session: %w", err)
	}
	return expectOneRow(res, "feeding session "+id)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.FeedingSession, error) {
	var s domain.FeedingSession
	var startStr string
	var endStr, notes sql.NullString
	var volume sql.NullInt64
	var breastType string
	var active int

	if err := row.Scan(&s.ID, &startStr, &endStr, &s.Duration, &breastType, &volume, &notes, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning feeding session: %w", err)
	}

	start, err := parseTime(startStr)
	if err != nil {
		return nil, fmt.Errorf("parsing start_time: %w", err)
	}
	s.StartTime = start
	s.EndTime = parseNullableTime(endStr)
	s.Type = domain.FeedingType(breastType)
	s.BottleVolume = nullableIntFromSQL(volume)
	s.Notes = notes.String
	s.Active = intToBool(active)
	return &s, nil
}

// Ping checks that the table can be read.
func (r *SQLiteSessionRepo) Ping(ctx context.Context, ownerID string) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeding_sessions WHERE user_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return fmt.Errorf("probing feeding_sessions: %w: %v", domain.ErrSchema, err)
	}
	return nil
}
