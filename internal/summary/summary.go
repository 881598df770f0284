// Package summary projects feeding sessions onto calendar days and weeks.
// Every function is a pure read over the given slice.
package summary

import (
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// DayBounds returns local midnight of date's calendar day and the last
// millisecond of that day, both in date's location.
func DayBounds(date time.Time) (start, end time.Time) {
	y, m, d := date.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	end = time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), date.Location())
	return start, end
}

// SessionsOn returns the sessions whose start time falls within date's
// calendar day, inclusive at both ends. Order is preserved.
func SessionsOn(sessions []domain.FeedingSession, date time.Time) []domain.FeedingSession {
	start, end := DayBounds(date)
	var out []domain.FeedingSession
	for _, s := range sessions {
		st := s.StartTime.In(date.Location())
		if !st.Before(start) && !st.After(end) {
			out = append(out, s)
		}
	}
	return out
}

// Daily sums the sessions that started on date's calendar day. "both"
// sessions count toward the totals and BothBreastsTime but never toward the
// left or right sub-totals.
func Daily(sessions []domain.FeedingSession, date time.Time) domain.DailySummary {
	start, _ := DayBounds(date)
	sum := domain.DailySummary{Date: start}
	for _, s := range SessionsOn(sessions, date) {
		accumulate(&sum, s)
	}
	return sum
}

func accumulate(sum *domain.DailySummary, s domain.FeedingSession) {
	sum.TotalSessions++
	if s.Duration <= 0 {
		return
	}
	sum.TotalTime += s.Duration
	switch s.Type {
	case domain.FeedingLeft:
		sum.LeftBreastTime += s.Duration
	case domain.FeedingRight:
		sum.RightBreastTime += s.Duration
	case domain.FeedingBoth:
		sum.BothBreastsTime += s.Duration
	case domain.FeedingBottle:
		sum.BottleTime += s.Duration
		sum.BottleVolume += s.Volume()
	}
}

// WeekStart returns local midnight of the first day of the week containing
// date.
func WeekStart(date time.Time, first domain.WeekStartDay) time.Time {
	start, _ := DayBounds(date)
	offset := int(start.Weekday()) // Sunday = 0
	if first != domain.WeekStartSunday {
		offset = (offset + 6) % 7 // Monday = 0
	}
	return start.AddDate(0, 0, -offset)
}

// Weekly builds the seven daily summaries of the week containing date.
func Weekly(sessions []domain.FeedingSession, date time.Time, first domain.WeekStartDay) domain.WeeklySummary {
	ws := WeekStart(date, first)
	w := domain.WeeklySummary{WeekStart: ws}
	w.Totals.Date = ws
	for i := 0; i < 7; i++ {
		// AddDate keeps wall-clock midnight across DST transitions.
		day := Daily(sessions, ws.AddDate(0, 0, i))
		w.Days[i] = day
		w.Totals.Add(day)
	}
	return w
}

// Range sums every session that started within [from's day, to's day].
func Range(sessions []domain.FeedingSession, from, to time.Time) domain.DailySummary {
	start, _ := DayBounds(from)
	_, end := DayBounds(to)
	sum := domain.DailySummary{Date: start}
	for _, s := range sessions {
		st := s.StartTime.In(from.Location())
		if st.Before(start) || st.After(end) {
			continue
		}
		accumulate(&sum, s)
	}
	return sum
}

// InRange filters sessions to those starting within [from's day, to's day],
// preserving order.
func InRange(sessions []domain.FeedingSession, from, to time.Time) []domain.FeedingSession {
	start, _ := DayBounds(from)
	_, end := DayBounds(to)
	var out []domain.FeedingSession
	for _, s := range sessions {
		st := s.StartTime.In(from.Location())
		if !st.Before(start) && !st.After(end) {
			out = append(out, s)
		}
	}
	return out
}
