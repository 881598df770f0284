// Package export renders feeding sessions as CSV and as a paginated PDF
// report. Both are read-only projections of the session collection.
package export

import (
	"sort"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/summary"
)

// Options select and label what is exported.
type Options struct {
	// From and To bound the export by calendar day, inclusive. Zero means open.
	From, To time.Time
	// Location is used for dates and clock times. Defaults to time.Local.
	Location *time.Location
	Title    string
	// Generated is printed in the PDF header. Defaults to time.Now.
	Generated time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Select returns the sessions inside the options' day range, oldest first.
func Select(sessions []domain.FeedingSession, opts Options) []domain.FeedingSession {
	loc := opts.location()
	out := make([]domain.FeedingSession, 0, len(sessions))
	switch {
	case opts.From.IsZero() && opts.To.IsZero():
		out = append(out, sessions...)
	default:
		from, to := opts.From, opts.To
		if from.IsZero() {
			from = time.Date(1, 1, 1, 0, 0, 0, 0, loc)
		}
		if to.IsZero() {
			to = time.Date(9999, 12, 31, 0, 0, 0, 0, loc)
		}
		out = append(out, summary.InRange(sessions, from.In(loc), to.In(loc))...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
