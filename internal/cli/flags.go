package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// feedingTypeValue is a pflag.Value accepting left, right, both or bottle
// and their short aliases.
type feedingTypeValue struct {
	t *domain.FeedingType
}

var _ pflag.Value = feedingTypeValue{}

func newFeedingTypeValue(def domain.FeedingType, p *domain.FeedingType) feedingTypeValue {
	*p = def
	return feedingTypeValue{t: p}
}

func (v feedingTypeValue) String() string {
	if v.t == nil {
		return ""
	}
	return string(*v.t)
}

func (v feedingTypeValue) Set(s string) error {
	t, err := domain.ParseFeedingType(s)
	if err != nil {
		return err
	}
	*v.t = t
	return nil
}

func (v feedingTypeValue) Type() string { return "type" }

// parseDay resolves "", "today", "yesterday" or YYYY-MM-DD to local
// midnight of that day.
func parseDay(s string, now time.Time) (time.Time, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrValidation, s)
	}
	return t, nil
}

// parseClock parses HH:MM into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", domain.ErrValidation, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// at returns day's wall-clock time for HH:MM.
func at(day time.Time, clock string) (time.Time, error) {
	off, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(off), nil
}

// minutesBetween returns whole minutes from start to end. An end earlier
// than start is taken to be on the next day.
func minutesBetween(start, end time.Time) int {
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return int(end.Sub(start) / time.Minute)
}

// volumePtr turns a flag value into a bottle volume; 0 means none.
func volumePtr(ml int) *int {
	if ml == 0 {
		return nil
	}
	return &ml
}

func atoiOr(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}
