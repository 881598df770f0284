package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/alexanderramin/feedlog/internal/domain"
)

const (
	sessionsTable = "feeding_sessions"
	profilesTable = "user_profiles"

	returnRepresentation = "representation"
)

// sessionRow is the wire shape of a feeding_sessions row.
type sessionRow struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Duration     int        `json:"duration"`
	BreastType   string     `json:"breast_type"`
	BottleVolume *int       `json:"bottle_volume"`
	Notes        *string    `json:"notes"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func toSessionRow(ownerID string, s domain.FeedingSession) sessionRow {
	row := sessionRow{
		ID:           s.ID,
		UserID:       ownerID,
		StartTime:    s.StartTime.UTC(),
		Duration:     s.Duration,
		BreastType:   string(s.Type),
		BottleVolume: s.BottleVolume,
		IsActive:     s.Active,
	}
	if s.EndTime != nil {
		end := s.EndTime.UTC()
		row.EndTime = &end
	}
	if s.Notes != "" {
		notes := s.Notes
		row.Notes = &notes
	}
	return row
}

func (r sessionRow) toDomain() domain.FeedingSession {
	s := domain.FeedingSession{
		ID:           r.ID,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Duration:     r.Duration,
		Type:         domain.FeedingType(r.BreastType),
		BottleVolume: r.BottleVolume,
		Active:       r.IsActive,
	}
	if r.Notes != nil {
		s.Notes = *r.Notes
	}
	return s
}

// SessionTable implements backend.SessionTable over the table API.
type SessionTable struct {
	c *Client
}

func (t *SessionTable) List(ctx context.Context, ownerID string) ([]domain.FeedingSession, error) {
	var rows []sessionRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(sessionsTable).
			Select("*", "", false).
			Eq("user_id", ownerID).
			Order("start_time", &postgrest.OrderOpts{Ascending: false}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing feeding sessions: %w", err)
	}
	sessions := make([]domain.FeedingSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toDomain())
	}
	return sessions, nil
}

func (t *SessionTable) Insert(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	var rows []sessionRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(sessionsTable).
			Insert([]sessionRow{toSessionRow(ownerID, s)}, false, "", returnRepresentation, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting feeding session: %w", err)
	}
	return nil
}

func (t *SessionTable) Update(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	row := toSessionRow(ownerID, s)
	now := time.Now().UTC()
	row.UpdatedAt = &now

	var rows []sessionRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(sessionsTable).
			Update(row, returnRepresentation, "").
			Eq("user_id", ownerID).
			Eq("id", s.ID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating feeding session: %w", err)
	}
	// Row policies hide rows of other owners, so a miss and a denial look alike.
	if len(rows) == 0 {
		return fmt.Errorf("feeding session %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *SessionTable) Delete(ctx context.Context, ownerID, id string) error {
	var rows []sessionRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(sessionsTable).
			Delete(returnRepresentation, "").
			Eq("user_id", ownerID).
			Eq("id", id).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting feeding session: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("feeding session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Ping checks that the table is reachable and readable for ownerID. With
// an empty ownerID the check runs with the anon key.
func (t *SessionTable) Ping(ctx context.Context, ownerID string) error {
	var rows []sessionRow
	return t.c.tables(ctx, ownerID == "", func(pc *postgrest.Client) error {
		q := pc.From(sessionsTable).Select("id", "", false).Limit(1, "")
		if ownerID != "" {
			q = q.Eq("user_id", ownerID)
		}
		_, err := q.ExecuteTo(&rows)
		return err
	})
}

type profileRow struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      *string    `json:"full_name"`
	BabyName      *string    `json:"baby_name"`
	BabyBirthDate *string    `json:"baby_birth_date"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

const birthDateLayout = "2006-01-02"

func toProfileRow(p *domain.Profile) profileRow {
	row := profileRow{ID: p.OwnerID, Email: p.Email}
	if p.DisplayName != "" {
		row.FullName = &p.DisplayName
	}
	if p.ChildName != "" {
		row.BabyName = &p.ChildName
	}
	if p.ChildBirthDate != nil {
		d := p.ChildBirthDate.Format(birthDateLayout)
		row.BabyBirthDate = &d
	}
	now := time.Now().UTC()
	row.UpdatedAt = &now
	return row
}

func (r profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{OwnerID: r.ID, Email: r.Email}
	if r.FullName != nil {
		p.DisplayName = *r.FullName
	}
	if r.BabyName != nil {
		p.ChildName = *r.BabyName
	}
	if r.BabyBirthDate != nil {
		if d, err := time.Parse(birthDateLayout, *r.BabyBirthDate); err == nil {
			p.ChildBirthDate = &d
		}
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		p.UpdatedAt = *r.UpdatedAt
	}
	return p
}

// ProfileTable implements backend.ProfileTable over the table API.
type ProfileTable struct {
	c *Client
}

func (t *ProfileTable) Get(ctx context.Context, ownerID string) (*domain.Profile, error) {
	var rows []profileRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(profilesTable).
			Select("*", "", false).
			Eq("id", ownerID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching user profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("user profile: %w", domain.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

func (t *ProfileTable) Upsert(ctx context.Context, p *domain.Profile) error {
	var rows []profileRow
	err := t.c.tables(ctx, false, func(pc *postgrest.Client) error {
		_, err := pc.From(profilesTable).
			Upsert([]profileRow{toProfileRow(p)}, "id", returnRepresentation, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting user profile: %w", err)
	}
	return nil
}
