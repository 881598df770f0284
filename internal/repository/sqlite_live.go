package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// SQLiteLiveSessionRepo stores at most one live session per owner.
type SQLiteLiveSessionRepo struct {
	db db.DBTX
}

func NewSQLiteLiveSessionRepo(conn db.DBTX) *SQLiteLiveSessionRepo {
	return &SQLiteLiveSessionRepo{db: conn}
}

func (r *SQLiteLiveSessionRepo) Get(ctx context.Context, ownerID string) (*domain.LiveSession, error) {
	query := `SELECT id, owner_id, start_time, breast_type, bottle_volume, is_paused, paused_at, paused_ms
		FROM live_sessions WHERE owner_id = ?`
	var l domain.LiveSession
	var startStr, breastType string
	var volume sql.NullInt64
	var paused int
	var pausedAt sql.NullString
	var pausedMS int64

	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&l.ID, &l.OwnerID, &startStr, &breastType, &volume, &paused, &pausedAt, &pausedMS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("live session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning live session: %w", err)
	}
	if l.StartTime, err = parseTime(startStr); err != nil {
		return nil, fmt.Errorf("parsing live start_time: %w", err)
	}
	l.Type = domain.FeedingType(breastType)
	l.BottleVolume = nullableIntFromSQL(volume)
	l.Paused = intToBool(paused)
	l.PausedAt = parseNullableTime(pausedAt)
	l.AccumulatedPaused = time.Duration(pausedMS) * time.Millisecond
	return &l, nil
}

// Save inserts or replaces the owner's live session.
func (r *SQLiteLiveSessionRepo) Save(ctx context.Context, l *domain.LiveSession) error {
	query := `INSERT INTO live_sessions (owner_id, id, start_time, breast_type, bottle_volume,
			is_paused, paused_at, paused_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			id = excluded.id,
			start_time = excluded.start_time,
			breast_type = excluded.breast_type,
			bottle_volume = excluded.bottle_volume,
			is_paused = excluded.is_paused,
			paused_at = excluded.paused_at,
			paused_ms = excluded.paused_ms,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		l.OwnerID,
		l.ID,
		formatTime(l.StartTime),
		string(l.Type),
		nullableIntToValue(l.BottleVolume),
		boolToInt(l.Paused),
		nullableTimeToString(l.PausedAt),
		l.AccumulatedPaused.Milliseconds(),
		nowUTC(),
	)
	if err != nil {
		return classifyWriteError("saving live session", err)
	}
	return nil
}

// Delete removes the owner's live session. Deleting a missing one is not an error.
func (r *SQLiteLiveSessionRepo) Delete(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM live_sessions WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("deleting live session: %w", err)
	}
	return nil
}
