package formatter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexanderramin/feedlog/internal/diagnostics"
	"github.com/alexanderramin/feedlog/internal/domain"
)

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(0))
	assert.Equal(t, "0:00", FormatElapsed(-time.Second))
	assert.Equal(t, "1:05", FormatElapsed(65*time.Second))
	assert.Equal(t, "59:59", FormatElapsed(time.Hour-time.Second))
	assert.Equal(t, "1:02:03", FormatElapsed(time.Hour+2*time.Minute+3*time.Second))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "1h", FormatMinutes(60))
	assert.Equal(t, "8h", FormatMinutes(480))
	assert.Equal(t, "1h 30m", FormatMinutes(90))
}

func TestRelativeDayFrom(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today", RelativeDayFrom(now.Add(-9*time.Hour), now))
	assert.Equal(t, "Yesterday", RelativeDayFrom(now.Add(-11*time.Hour), now))
	assert.Equal(t, "3d ago", RelativeDayFrom(now.AddDate(0, 0, -3), now))
	assert.Equal(t, "Sun Jun 1, 2025", RelativeDayFrom(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "ééé...", Truncate("éééééééé", 6))
}

func TestRenderShare(t *testing.T) {
	assert.Equal(t, "[█████░░░░░]  50%", RenderShare(5, 10, 10, nil))
	assert.Equal(t, "[░░░░░░░░░░]   0%", RenderShare(0, 0, 10, nil))
	assert.Equal(t, "[██████████] 100%", RenderShare(12, 10, 10, nil))
}

func TestDailySummary(t *testing.T) {
	out := DailySummary(domain.DailySummary{
		TotalSessions: 4, TotalTime: 55,
		LeftBreastTime: 15, RightBreastTime: 12, BothBreastsTime: 18, BottleTime: 10, BottleVolume: 120,
	})
	assert.Contains(t, out, "55m")
	assert.Contains(t, out, "Left Breast")
	assert.Contains(t, out, "Both Breasts")
	assert.Contains(t, out, "120 ml")

	empty := DailySummary(domain.DailySummary{})
	assert.Contains(t, empty, "No feedings recorded.")
}

func TestSessionTable(t *testing.T) {
	vol := 90
	start := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)
	out := SessionTable([]domain.FeedingSession{
		{ID: "abcdef123456", StartTime: start, Duration: 15, Type: domain.FeedingLeft, Notes: "sleepy"},
		{ID: "zz", StartTime: start.Add(3 * time.Hour), Duration: 10, Type: domain.FeedingBottle, BottleVolume: &vol},
	}, time.UTC)

	assert.Contains(t, out, "abcdef12")
	assert.NotContains(t, out, "abcdef123456")
	assert.Contains(t, out, "08:30")
	assert.Contains(t, out, "90 ml")
	assert.Contains(t, out, "sleepy")
}

func TestLiveStatus(t *testing.T) {
	start := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	l := &domain.LiveSession{ID: "l", StartTime: start, Type: domain.FeedingRight}
	out := LiveStatus(l, start.Add(75*time.Second))
	assert.Contains(t, out, "1:15")
	assert.Contains(t, out, "Right Breast")
	assert.Contains(t, out, "running")

	l.Paused = true
	pausedAt := start.Add(75 * time.Second)
	l.PausedAt = &pausedAt
	out = LiveStatus(l, start.Add(10*time.Minute))
	assert.Contains(t, out, "1:15")
	assert.Contains(t, out, "paused")
}

func TestProfile(t *testing.T) {
	birth := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	out := Profile(&domain.Profile{Email: "a@example.com", ChildName: "Ada", ChildBirthDate: &birth},
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "6 weeks old")
}

func TestDoctorReport(t *testing.T) {
	out := DoctorReport(diagnostics.Report{Results: []diagnostics.Result{
		{Name: "config", Status: diagnostics.Pass, Detail: "backend local"},
		{Name: "identity", Status: diagnostics.Fail, Detail: "not signed in", Hint: "Run 'feedlog auth signin'.", Err: errors.New("x")},
	}})
	assert.Contains(t, out, "DIAGNOSTICS")
	assert.Contains(t, out, "backend local")
	assert.Contains(t, out, "Run 'feedlog auth signin'.")
	assert.Contains(t, out, "1 check(s) failed.")
}
