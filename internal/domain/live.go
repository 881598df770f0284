package domain

import (
	"fmt"
	"math"
	"time"
)

// LiveSession is an in-progress feeding being timed. At most one exists per
// owner. Elapsed time is always derived from absolute timestamps so missed
// ticks never accumulate drift.
type LiveSession struct {
	ID                string
	OwnerID           string
	StartTime         time.Time
	Type              FeedingType
	BottleVolume      *int
	Paused            bool
	PausedAt          *time.Time
	AccumulatedPaused time.Duration
}

// NewLiveSession starts a live session of the given type at now.
func NewLiveSession(id, ownerID string, t FeedingType, bottleVolume *int, now time.Time) (*LiveSession, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown feeding type %q", ErrValidation, t)
	}
	if err := ValidateBottleVolume(t, bottleVolume); err != nil {
		return nil, err
	}
	return &LiveSession{
		ID:           id,
		OwnerID:      ownerID,
		StartTime:    now,
		Type:         t,
		BottleVolume: bottleVolume,
	}, nil
}

// Elapsed returns active (unpaused) time at now. While paused the value is
// frozen at the moment the pause began.
func (l *LiveSession) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(l.StartTime) - l.AccumulatedPaused
	if l.Paused && l.PausedAt != nil {
		elapsed -= now.Sub(*l.PausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Pause freezes the timer at now.
func (l *LiveSession) Pause(now time.Time) error {
	if l.Paused {
		return fmt.Errorf("%w: session is already paused", ErrValidation)
	}
	l.Paused = true
	l.PausedAt = &now
	return nil
}

// Resume restarts the timer, adding the pause span that just ended to the
// accumulated paused duration.
func (l *LiveSession) Resume(now time.Time) error {
	if !l.Paused {
		return fmt.Errorf("%w: session is not paused", ErrValidation)
	}
	if l.PausedAt != nil {
		if span := now.Sub(*l.PausedAt); span > 0 {
			l.AccumulatedPaused += span
		}
	}
	l.Paused = false
	l.PausedAt = nil
	return nil
}

// SwitchSide flips left and right without touching the timer.
func (l *LiveSession) SwitchSide() error {
	switch l.Type {
	case FeedingLeft:
		l.Type = FeedingRight
	case FeedingRight:
		l.Type = FeedingLeft
	default:
		return fmt.Errorf("%w (current type: %s)", ErrCannotSwitch, l.Type)
	}
	return nil
}

// Finish converts the live session into a completed FeedingSession ending at
// end. Active time is rounded to whole minutes and clamped to at least one
// minute; the result is validated like any other session.
func (l *LiveSession) Finish(end time.Time, notes string) (FeedingSession, error) {
	if end.Before(l.StartTime) {
		return FeedingSession{}, fmt.Errorf("%w: end time is before the session started", ErrValidation)
	}
	s := FeedingSession{
		ID:           l.ID,
		StartTime:    l.StartTime,
		EndTime:      &end,
		Duration:     ActiveMinutes(l.Elapsed(end)),
		Type:         l.Type,
		BottleVolume: l.BottleVolume,
		Notes:        notes,
	}
	if err := s.Validate(); err != nil {
		return FeedingSession{}, err
	}
	return s, nil
}

// ActiveMinutes rounds d to the nearest whole minute with a floor of
// MinDurationMin.
func ActiveMinutes(d time.Duration) int {
	minutes := int(math.Round(float64(d.Milliseconds()) / 60000))
	if minutes < MinDurationMin {
		return MinDurationMin
	}
	return minutes
}
