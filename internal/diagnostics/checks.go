package diagnostics

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rsc.io/pdf"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/config"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/export"
)

// Verifier resolves the signed-in identity against the backend.
type Verifier interface {
	Current() *domain.Identity
	Verify(ctx context.Context) (*domain.Identity, error)
}

// ConfigCheck validates the loaded configuration.
func ConfigCheck(cfg config.Config) Check {
	return Check{Name: "config", Run: func(context.Context) (string, error) {
		if err := cfg.Validate(); err != nil {
			return "", err
		}
		return fmt.Sprintf("backend %s, week starts %s", cfg.Backend, cfg.WeekStart), nil
	}}
}

// StateDBCheck pings the local state database and reads its schema.
func StateDBCheck(conn *sql.DB) Check {
	return Check{Name: "state database", Run: func(ctx context.Context) (string, error) {
		if err := conn.PingContext(ctx); err != nil {
			return "", fmt.Errorf("pinging state database: %w", err)
		}
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM live_sessions`).Scan(&n); err != nil {
			return "", fmt.Errorf("reading live_sessions: %w: %v", domain.ErrSchema, err)
		}
		return fmt.Sprintf("%d live session(s) stored", n), nil
	}}
}

// IdentityCheck confirms the stored session with the backend.
func IdentityCheck(v Verifier) Check {
	return Check{Name: "identity", Run: func(ctx context.Context) (string, error) {
		if v.Current() == nil {
			return "", Skip("not signed in")
		}
		id, err := v.Verify(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("signed in as %s", id.Email), nil
	}}
}

// SessionTableCheck reads the feeding_sessions table for the owner. owner
// is called when the check runs so it sees the identity at that moment.
func SessionTableCheck(t backend.SessionTable, owner func() string) Check {
	return Check{Name: "feeding_sessions table", Run: func(ctx context.Context) (string, error) {
		id := owner()
		if id == "" {
			return "", Skip("not signed in")
		}
		if p, ok := t.(backend.Pinger); ok {
			if err := p.Ping(ctx, id); err != nil {
				return "", err
			}
			return "readable", nil
		}
		rows, err := t.List(ctx, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d row(s) visible", len(rows)), nil
	}}
}

// ProfileTableCheck reads the owner's user_profiles row. A missing row passes.
func ProfileTableCheck(t backend.ProfileTable, owner func() string) Check {
	return Check{Name: "user_profiles table", Run: func(ctx context.Context) (string, error) {
		id := owner()
		if id == "" {
			return "", Skip("not signed in")
		}
		_, err := t.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return "readable, no profile row yet", nil
		}
		if err != nil {
			return "", err
		}
		return "readable", nil
	}}
}

// ExportCheck renders a sample report and reads it back.
func ExportCheck() Check {
	return Check{Name: "pdf export", Run: func(context.Context) (string, error) {
		start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
		end := start.Add(15 * time.Minute)
		sample := []domain.FeedingSession{{
			ID: "self-check", StartTime: start, EndTime: &end, Duration: 15, Type: domain.FeedingLeft,
		}}
		var buf bytes.Buffer
		if _, err := export.PDF(&buf, sample, export.Options{Location: time.UTC, Title: "self-check"}); err != nil {
			return "", err
		}
		r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			return "", fmt.Errorf("reading generated pdf: %w", err)
		}
		if r.NumPage() != 1 {
			return "", fmt.Errorf("generated pdf has %d pages, want 1", r.NumPage())
		}
		return fmt.Sprintf("%d bytes, 1 page", buf.Len()), nil
	}}
}
