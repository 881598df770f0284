package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// SessionTable renders sessions as a table in loc.
func SessionTable(sessions []domain.FeedingSession, loc *time.Location) string {
	headers := []string{"ID", "DATE", "START", "DURATION", "TYPE", "VOLUME", "NOTES"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		start := s.StartTime.In(loc)
		volume := Dim("--")
		if s.BottleVolume != nil {
			volume = fmt.Sprintf("%d ml", *s.BottleVolume)
		}
		rows = append(rows, []string{
			TruncID(s.ID),
			start.Format("2006-01-02"),
			start.Format("15:04"),
			FormatMinutes(s.Duration),
			TypeBadge(s.Type),
			volume,
			Dim(Truncate(s.Notes, 40)),
		})
	}
	return RenderTable(headers, rows)
}

// SessionDetail renders one session, e.g. after it was saved.
func SessionDetail(s domain.FeedingSession, loc *time.Location) string {
	var b strings.Builder
	start := s.StartTime.In(loc)
	fmt.Fprintf(&b, "%s  %s\n", Dim("ID      "), s.ID)
	fmt.Fprintf(&b, "%s  %s\n", Dim("Started "), start.Format("Mon Jan 2, 15:04"))
	if s.EndTime != nil {
		fmt.Fprintf(&b, "%s  %s\n", Dim("Ended   "), s.EndTime.In(loc).Format("15:04"))
	}
	fmt.Fprintf(&b, "%s  %s\n", Dim("Duration"), FormatMinutes(s.Duration))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Type    "), TypeBadge(s.Type))
	if s.BottleVolume != nil {
		fmt.Fprintf(&b, "%s  %d ml\n", Dim("Volume  "), *s.BottleVolume)
	}
	if s.Notes != "" {
		fmt.Fprintf(&b, "%s  %s\n", Dim("Notes   "), s.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DailySummary renders the totals of one day with a share bar per type.
func DailySummary(d domain.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %d\n", Dim("Feedings  "), d.TotalSessions)
	fmt.Fprintf(&b, "%s  %s\n", Dim("Total time"), FormatMinutes(d.TotalTime))
	if d.TotalSessions == 0 {
		b.WriteString(Dim("No feedings recorded."))
		return b.String()
	}
	b.WriteString("\n")

	shares := []struct {
		t       domain.FeedingType
		minutes int
	}{
		{domain.FeedingLeft, d.LeftBreastTime},
		{domain.FeedingRight, d.RightBreastTime},
		{domain.FeedingBoth, d.BothBreastsTime},
		{domain.FeedingBottle, d.BottleTime},
	}
	for _, sh := range shares {
		style := TypeStyle(sh.t)
		fmt.Fprintf(&b, "%-14s %7s  %s", sh.t.Label(), FormatMinutes(sh.minutes),
			RenderShare(sh.minutes, d.TotalTime, 20, func(s string) string { return style.Render(s) }))
		if sh.t == domain.FeedingBottle && d.BottleVolume > 0 {
			fmt.Fprintf(&b, "  %d ml", d.BottleVolume)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// WeeklySummary renders one row per day plus a totals row.
func WeeklySummary(w domain.WeeklySummary) string {
	headers := []string{"DAY", "FEEDINGS", "TOTAL", "LEFT", "RIGHT", "BOTH", "BOTTLE", "ML"}
	row := func(label string, d domain.DailySummary) []string {
		return []string{
			label,
			fmt.Sprintf("%d", d.TotalSessions),
			FormatMinutes(d.TotalTime),
			FormatMinutes(d.LeftBreastTime),
			FormatMinutes(d.RightBreastTime),
			FormatMinutes(d.BothBreastsTime),
			FormatMinutes(d.BottleTime),
			fmt.Sprintf("%d", d.BottleVolume),
		}
	}
	rows := make([][]string, 0, 8)
	for _, d := range w.Days {
		rows = append(rows, row(d.Date.Format("Mon 01-02"), d))
	}
	rows = append(rows, row(Bold("Total"), w.Totals))
	return RenderNumericTable(headers, rows)
}

// LiveStatus renders a live session at now.
func LiveStatus(l *domain.LiveSession, now time.Time) string {
	state := StyleGreen.Render("● running")
	if l.Paused {
		state = StyleYellow.Render("○ paused")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", StyleBold.Render(FormatElapsed(l.Elapsed(now))))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Side   "), TypeBadge(l.Type))
	fmt.Fprintf(&b, "%s  %s\n", Dim("State  "), state)
	fmt.Fprintf(&b, "%s  %s", Dim("Started"), l.StartTime.In(now.Location()).Format("15:04:05"))
	if l.BottleVolume != nil {
		fmt.Fprintf(&b, "\n%s  %d ml", Dim("Volume "), *l.BottleVolume)
	}
	return b.String()
}

// Profile renders profile metadata.
func Profile(p *domain.Profile, now time.Time) string {
	orDash := func(s string) string {
		if s == "" {
			return Dim("--")
		}
		return s
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Dim("Email     "), orDash(p.Email))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Name      "), orDash(p.DisplayName))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Child     "), orDash(p.ChildName))
	birth := Dim("--")
	if p.ChildBirthDate != nil {
		birth = p.ChildBirthDate.Format("2006-01-02")
		if days := p.ChildAgeDays(now); days >= 0 {
			birth += Dim(fmt.Sprintf(" (%s)", childAge(days)))
		}
	}
	fmt.Fprintf(&b, "%s  %s", Dim("Birth date"), birth)
	return b.String()
}

func childAge(days int) string {
	switch {
	case days == 1:
		return "1 day old"
	case days < 14:
		return fmt.Sprintf("%d days old", days)
	case days < 120:
		return fmt.Sprintf("%d weeks old", days/7)
	default:
		return fmt.Sprintf("%d months old", days*12/365)
	}
}
