package testutil

import (
	"sync"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/google/uuid"
)

// BaseTime is the default start of fixture sessions: a Sunday morning.
var BaseTime = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

// Session options
type SessionOption func(*domain.FeedingSession)

func WithType(t domain.FeedingType) SessionOption {
	return func(s *domain.FeedingSession) {
		s.Type = t
		if t != domain.FeedingBottle {
			s.BottleVolume = nil
		} else if s.BottleVolume == nil {
			v := domain.DefaultBottleVolML
			s.BottleVolume = &v
		}
	}
}

// WithBottle makes the session a bottle feeding of ml millilitres.
func WithBottle(ml int) SessionOption {
	return func(s *domain.FeedingSession) {
		s.Type = domain.FeedingBottle
		s.BottleVolume = &ml
	}
}

// WithStart moves the session, keeping its duration.
func WithStart(t time.Time) SessionOption {
	return func(s *domain.FeedingSession) {
		s.StartTime = t
		end := t.Add(time.Duration(s.Duration) * time.Minute)
		s.EndTime = &end
	}
}

func WithDuration(m int) SessionOption {
	return func(s *domain.FeedingSession) {
		s.Duration = m
		end := s.StartTime.Add(time.Duration(m) * time.Minute)
		s.EndTime = &end
	}
}

func WithNotes(n string) SessionOption {
	return func(s *domain.FeedingSession) {
		s.Notes = n
	}
}

func WithID(id string) SessionOption {
	return func(s *domain.FeedingSession) {
		s.ID = id
	}
}

// NewTestSession returns a valid 15 minute left-breast session at BaseTime.
func NewTestSession(opts ...SessionOption) domain.FeedingSession {
	end := BaseTime.Add(15 * time.Minute)
	s := domain.FeedingSession{
		ID:        uuid.New().String(),
		StartTime: BaseTime,
		EndTime:   &end,
		Duration:  15,
		Type:      domain.FeedingLeft,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Profile options
type ProfileOption func(*domain.Profile)

func WithDisplayName(n string) ProfileOption {
	return func(p *domain.Profile) {
		p.DisplayName = n
	}
}

func WithChild(name string, birth time.Time) ProfileOption {
	return func(p *domain.Profile) {
		p.ChildName = name
		p.ChildBirthDate = &birth
	}
}

func NewTestProfile(ownerID, email string, opts ...ProfileOption) *domain.Profile {
	p := &domain.Profile{
		OwnerID: ownerID,
		Email:   email,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clock is a manually advanced time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
