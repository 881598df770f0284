package summary

import (
	"testing"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("TEST", 2*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, loc)
}

func sess(id string, start time.Time, minutes int, ft domain.FeedingType, vol int) domain.FeedingSession {
	s := domain.FeedingSession{ID: id, StartTime: start, Duration: minutes, Type: ft}
	if vol > 0 {
		s.BottleVolume = &vol
	}
	return s
}

func exampleDay() []domain.FeedingSession {
	return []domain.FeedingSession{
		sess("1", at(20, 8, 30), 15, domain.FeedingLeft, 0),
		sess("2", at(20, 11, 45), 12, domain.FeedingRight, 0),
		sess("3", at(20, 14, 20), 18, domain.FeedingBoth, 0),
		sess("4", at(20, 17, 0), 10, domain.FeedingBottle, 120),
	}
}

func TestDaily_ExampleDay(t *testing.T) {
	got := Daily(exampleDay(), at(20, 12, 0))

	assert.Equal(t, 4, got.TotalSessions)
	assert.Equal(t, 55, got.TotalTime)
	assert.Equal(t, 15, got.LeftBreastTime)
	assert.Equal(t, 12, got.RightBreastTime)
	assert.Equal(t, 18, got.BothBreastsTime)
	assert.Equal(t, 10, got.BottleTime)
	assert.Equal(t, 120, got.BottleVolume)
	assert.Equal(t, "2025-03-20", got.DateKey())
}

func TestSessionsOn_InclusiveBounds(t *testing.T) {
	start, end := DayBounds(at(20, 12, 0))
	sessions := []domain.FeedingSession{
		sess("before", start.Add(-time.Millisecond), 5, domain.FeedingLeft, 0),
		sess("first", start, 5, domain.FeedingLeft, 0),
		sess("last", end, 5, domain.FeedingLeft, 0),
		sess("after", end.Add(time.Millisecond), 5, domain.FeedingLeft, 0),
	}

	got := SessionsOn(sessions, at(20, 0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "last", got[1].ID)
}

func TestSessionsOn_UsesTargetLocation(t *testing.T) {
	// 23:30 UTC on the 19th is 01:30 on the 20th in TEST.
	s := sess("x", time.Date(2025, 3, 19, 23, 30, 0, 0, time.UTC), 5, domain.FeedingLeft, 0)
	assert.Len(t, SessionsOn([]domain.FeedingSession{s}, at(20, 9, 0)), 1)
	assert.Empty(t, SessionsOn([]domain.FeedingSession{s}, at(19, 9, 0)))
}

func TestWeekStart(t *testing.T) {
	// 2025-03-20 is a Thursday.
	assert.Equal(t, at(17, 0, 0), WeekStart(at(20, 15, 0), domain.WeekStartMonday))
	assert.Equal(t, at(16, 0, 0), WeekStart(at(20, 15, 0), domain.WeekStartSunday))
	// A Sunday belongs to the previous Monday-week.
	assert.Equal(t, at(17, 0, 0), WeekStart(at(23, 10, 0), domain.WeekStartMonday))
	assert.Equal(t, at(23, 0, 0), WeekStart(at(23, 10, 0), domain.WeekStartSunday))
	// Unset defaults to Monday.
	assert.Equal(t, at(17, 0, 0), WeekStart(at(17, 0, 0), ""))
}

func TestWeekly(t *testing.T) {
	sessions := append(exampleDay(),
		sess("mon", at(17, 7, 0), 20, domain.FeedingLeft, 0),
		sess("sun", at(23, 22, 0), 5, domain.FeedingBottle, 60),
		sess("next-mon", at(24, 1, 0), 30, domain.FeedingRight, 0),
	)

	w := Weekly(sessions, at(20, 12, 0), domain.WeekStartMonday)
	assert.Equal(t, at(17, 0, 0), w.WeekStart)
	assert.Equal(t, 1, w.Days[0].TotalSessions)
	assert.Equal(t, 4, w.Days[3].TotalSessions)
	assert.Equal(t, 1, w.Days[6].TotalSessions)
	assert.Equal(t, 6, w.Totals.TotalSessions)
	assert.Equal(t, 80, w.Totals.TotalTime)
	assert.Equal(t, 180, w.Totals.BottleVolume)

	for i, d := range w.Days {
		assert.Equal(t, at(17+i, 0, 0), d.Date)
	}
}

func TestRange(t *testing.T) {
	sessions := append(exampleDay(), sess("y", at(21, 9, 0), 7, domain.FeedingLeft, 0))
	got := Range(sessions, at(20, 0, 0), at(21, 0, 0))
	assert.Equal(t, 5, got.TotalSessions)
	assert.Equal(t, 62, got.TotalTime)

	assert.Len(t, InRange(sessions, at(21, 0, 0), at(21, 0, 0)), 1)
}

func TestDaily_Empty(t *testing.T) {
	got := Daily(nil, at(20, 0, 0))
	assert.Zero(t, got.TotalSessions)
	assert.Equal(t, at(20, 0, 0), got.Date)
}
