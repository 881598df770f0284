package domain

import (
	"fmt"
	"strings"
	"time"
)

// FeedingType classifies a feeding session.
type FeedingType string

const (
	FeedingLeft   FeedingType = "left"
	FeedingRight  FeedingType = "right"
	FeedingBoth   FeedingType = "both"
	FeedingBottle FeedingType = "bottle"
)

// FeedingTypes lists every feeding type in display order.
var FeedingTypes = []FeedingType{FeedingLeft, FeedingRight, FeedingBoth, FeedingBottle}

// Session bounds enforced by every backend.
const (
	MinDurationMin     = 1
	MaxDurationMin     = 480
	MinBottleVolumeML  = 1
	MaxBottleVolumeML  = 500
	DefaultBottleVolML = 120
)

// ParseFeedingType accepts the canonical names plus a few aliases
// ("l", "r", "left-breast", ...).
func ParseFeedingType(s string) (FeedingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "left-breast":
		return FeedingLeft, nil
	case "right", "r", "right-breast":
		return FeedingRight, nil
	case "both", "b", "both-breasts":
		return FeedingBoth, nil
	case "bottle", "bt":
		return FeedingBottle, nil
	default:
		return "", fmt.Errorf("%w: unknown feeding type %q (want left, right, both or bottle)", ErrValidation, s)
	}
}

// Valid reports whether t is one of the known feeding types.
func (t FeedingType) Valid() bool {
	switch t {
	case FeedingLeft, FeedingRight, FeedingBoth, FeedingBottle:
		return true
	}
	return false
}

// IsBreast reports whether t is a breast-based type.
func (t FeedingType) IsBreast() bool {
	return t == FeedingLeft || t == FeedingRight || t == FeedingBoth
}

// Label returns the human-readable name.
func (t FeedingType) Label() string {
	switch t {
	case FeedingLeft:
		return "Left Breast"
	case FeedingRight:
		return "Right Breast"
	case FeedingBoth:
		return "Both Breasts"
	case FeedingBottle:
		return "Bottle"
	default:
		return string(t)
	}
}

// FeedingSession is a single recorded feeding.
type FeedingSession struct {
	ID           string
	StartTime    time.Time
	EndTime      *time.Time
	Duration     int // minutes
	Type         FeedingType
	BottleVolume *int // ml, bottle only
	Notes        string
	Active       bool
}

// Validate checks the session against the data-model invariants. It never
// touches the network and wraps ErrValidation on failure.
func (s *FeedingSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if s.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrValidation)
	}
	if err := ValidateDuration(s.Duration); err != nil {
		return err
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown feeding type %q", ErrValidation, s.Type)
	}
	if s.EndTime != nil && s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("%w: end time %s is before start time %s", ErrValidation,
			s.EndTime.Format(time.RFC3339), s.StartTime.Format(time.RFC3339))
	}
	return ValidateBottleVolume(s.Type, s.BottleVolume)
}

// ValidateDuration checks that minutes is within [MinDurationMin, MaxDurationMin].
func ValidateDuration(minutes int) error {
	if minutes < MinDurationMin || minutes > MaxDurationMin {
		return fmt.Errorf("%w: duration must be between %d and %d minutes, got %d",
			ErrValidation, MinDurationMin, MaxDurationMin, minutes)
	}
	return nil
}

// ValidateBottleVolume requires a volume for bottle feedings and rejects one
// for breast feedings.
func ValidateBottleVolume(t FeedingType, volume *int) error {
	if t != FeedingBottle {
		if volume != nil {
			return fmt.Errorf("%w: bottle volume only applies to bottle feedings", ErrValidation)
		}
		return nil
	}
	if volume == nil {
		return fmt.Errorf("%w: bottle volume is required for bottle feedings", ErrValidation)
	}
	if *volume < MinBottleVolumeML || *volume > MaxBottleVolumeML {
		return fmt.Errorf("%w: bottle volume must be between %d and %d ml, got %d",
			ErrValidation, MinBottleVolumeML, MaxBottleVolumeML, *volume)
	}
	return nil
}

// EffectiveEnd returns EndTime, or StartTime plus Duration when no end was recorded.
func (s *FeedingSession) EffectiveEnd() time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.StartTime.Add(time.Duration(s.Duration) * time.Minute)
}

// Volume returns the bottle volume or 0.
func (s *FeedingSession) Volume() int {
	if s.BottleVolume == nil {
		return 0
	}
	return *s.BottleVolume
}
