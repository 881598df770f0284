package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// EndOptions finish a live session.
type EndOptions struct {
	Notes string
	// DurationMin overrides the timed duration when > 0.
	DurationMin int
}

func (s *Store) currentLive(ctx context.Context) (*domain.LiveSession, string, error) {
	owner, _, err := s.snapshot()
	if err != nil {
		return nil, "", err
	}
	l, err := s.live.Get(ctx, owner)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, owner, domain.ErrNoLiveSession
	}
	if err != nil {
		return nil, owner, err
	}
	return l, owner, nil
}

// Live returns the owner's live session.
func (s *Store) Live(ctx context.Context) (*domain.LiveSession, error) {
	l, _, err := s.currentLive(ctx)
	return l, err
}

// StartLive begins timing a feeding. Only one live session may exist.
func (s *Store) StartLive(ctx context.Context, t domain.FeedingType, bottleVolume *int) (_ *domain.LiveSession, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "live_start", start, err, map[string]any{"type": string(t)}) }()

	existing, owner, err := s.currentLive(ctx)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w (started %s)", domain.ErrLiveSessionActive,
			existing.StartTime.Local().Format("15:04"))
	case !errors.Is(err, domain.ErrNoLiveSession):
		return nil, err
	}

	l, err := domain.NewLiveSession(s.newID(), owner, t, bottleVolume, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.live.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) mutateLive(ctx context.Context, name string, fn func(*domain.LiveSession) error) (_ *domain.LiveSession, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, name, start, err, nil) }()

	l, _, err := s.currentLive(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(l); err != nil {
		return nil, err
	}
	if err := s.live.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// PauseLive freezes the timer.
func (s *Store) PauseLive(ctx context.Context) (*domain.LiveSession, error) {
	return s.mutateLive(ctx, "live_pause", func(l *domain.LiveSession) error {
		return l.Pause(s.now())
	})
}

// ResumeLive restarts a paused timer.
func (s *Store) ResumeLive(ctx context.Context) (*domain.LiveSession, error) {
	return s.mutateLive(ctx, "live_resume", func(l *domain.LiveSession) error {
		return l.Resume(s.now())
	})
}

// SwitchSide flips left and right without resetting the timer.
func (s *Store) SwitchSide(ctx context.Context) (*domain.LiveSession, error) {
	return s.mutateLive(ctx, "live_switch", func(l *domain.LiveSession) error {
		return l.SwitchSide()
	})
}

// EndLive turns the live session into a saved feeding. The live session is
// kept when validation or the write fails, so the user can retry, end with
// an explicit duration, or discard it.
func (s *Store) EndLive(ctx context.Context, opts EndOptions) (_ domain.FeedingSession, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "live_end", start, err, nil) }()

	l, owner, err := s.currentLive(ctx)
	if err != nil {
		return domain.FeedingSession{}, err
	}

	now := s.now()
	var sess domain.FeedingSession
	if opts.DurationMin > 0 {
		sess = domain.FeedingSession{
			ID:           l.ID,
			StartTime:    l.StartTime,
			EndTime:      &now,
			Duration:     opts.DurationMin,
			Type:         l.Type,
			BottleVolume: l.BottleVolume,
			Notes:        opts.Notes,
		}
	} else {
		sess, err = l.Finish(now, opts.Notes)
		if err != nil {
			return domain.FeedingSession{}, err
		}
	}

	saved, err := s.Add(ctx, sess)
	if errors.Is(err, domain.ErrIntegrity) {
		saved, err = s.alreadyEnded(ctx, sess.ID, err)
	}
	if err != nil {
		return domain.FeedingSession{}, err
	}
	if err := s.live.Delete(ctx, owner); err != nil {
		return saved, fmt.Errorf("feeding saved but live session not cleared: %w", err)
	}
	return saved, nil
}

// alreadyEnded resolves a duplicate id on end. An earlier end may have
// written the feeding and then failed to report it or to clear the live
// session; the row under the live session's id is that feeding.
func (s *Store) alreadyEnded(ctx context.Context, id string, cause error) (domain.FeedingSession, error) {
	if err := s.Load(ctx); err != nil {
		return domain.FeedingSession{}, cause
	}
	saved, err := s.Get(id)
	if err != nil {
		return domain.FeedingSession{}, cause
	}
	return saved, nil
}

// DiscardLive drops the live session without saving anything.
func (s *Store) DiscardLive(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "live_discard", start, err, nil) }()

	_, owner, err := s.currentLive(ctx)
	if err != nil {
		return err
	}
	return s.live.Delete(ctx, owner)
}
