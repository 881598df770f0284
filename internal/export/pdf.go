package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/summary"
)

const (
	marginMM      = 18
	lineMM        = 5
	bodyPt        = 10
	titlePt       = 16
	footerPt      = 8
	indentMM      = 4
	maxNoteLength = 60
)

// reportLine is one line of the report body.
type reportLine struct {
	text   string
	bold   bool
	indent bool
}

// PDF writes an A4 report of the selected sessions grouped by day, with a
// summary line per day, and returns how many sessions it covers. The title
// heads every page and the footer numbers pages.
func PDF(w io.Writer, sessions []domain.FeedingSession, opts Options) (int, error) {
	loc := opts.location()
	rows := Select(sessions, opts)
	title := opts.Title
	if title == "" {
		title = "Feeding log"
	}
	generated := opts.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	lines := []reportLine{
		{text: rangeLabel(rows, opts, loc)},
		{text: fmt.Sprintf("Generated %s", generated.In(loc).Format("2006-01-02 15:04"))},
		{text: totalsLabel(summary.Range(rows, firstDay(rows, loc), lastDay(rows, loc)), len(rows))},
		{},
	}
	if len(rows) == 0 {
		lines = append(lines, reportLine{text: "No feedings recorded in this range."})
	}
	for _, day := range groupByDay(rows, loc) {
		d := summary.Daily(day, day[0].StartTime.In(loc))
		lines = append(lines, reportLine{text: dayLabel(d), bold: true})
		for _, s := range day {
			lines = append(lines, reportLine{text: sessionLabel(s, loc), indent: true})
		}
		lines = append(lines, reportLine{})
	}

	doc := newReport(title, generated)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", titlePt)
		doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		doc.Ln(2)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-marginMM + 4)
		doc.SetFont("Helvetica", "", footerPt)
		doc.CellFormat(0, 4, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "L", false, 0, "")
	})
	doc.AddPage()

	for i, l := range lines {
		if l.text == "" {
			// A blank line never opens a page.
			if i < len(lines)-1 && doc.GetY()+lineMM < pageBottom(doc) {
				doc.Ln(lineMM)
			}
			continue
		}
		style := ""
		if l.bold {
			style = "B"
		}
		doc.SetFont("Helvetica", style, bodyPt)
		if l.indent {
			doc.SetX(marginMM + indentMM)
		}
		doc.CellFormat(0, lineMM, tr(l.text), "", 1, "L", false, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return 0, fmt.Errorf("write export pdf: %w", err)
	}
	return len(rows), nil
}

func newReport(title string, generated time.Time) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(marginMM, marginMM, marginMM)
	doc.SetAutoPageBreak(true, marginMM)
	doc.AliasNbPages("")
	doc.SetTitle(title, true)
	doc.SetCreator("feedlog", true)
	doc.SetCreationDate(generated)
	return doc
}

// pageBottom is the y position where automatic page breaks trigger.
func pageBottom(doc *fpdf.Fpdf) float64 {
	_, h := doc.GetPageSize()
	return h - marginMM
}

func groupByDay(rows []domain.FeedingSession, loc *time.Location) [][]domain.FeedingSession {
	var groups [][]domain.FeedingSession
	lastKey := ""
	for _, s := range rows {
		key := s.StartTime.In(loc).Format("2006-01-02")
		if key != lastKey {
			groups = append(groups, nil)
			lastKey = key
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}
	return groups
}

func firstDay(rows []domain.FeedingSession, loc *time.Location) time.Time {
	if len(rows) == 0 {
		return time.Now().In(loc)
	}
	return rows[0].StartTime.In(loc)
}

func lastDay(rows []domain.FeedingSession, loc *time.Location) time.Time {
	if len(rows) == 0 {
		return time.Now().In(loc)
	}
	return rows[len(rows)-1].StartTime.In(loc)
}

func rangeLabel(rows []domain.FeedingSession, opts Options, loc *time.Location) string {
	from, to := opts.From, opts.To
	if from.IsZero() && len(rows) > 0 {
		from = rows[0].StartTime
	}
	if to.IsZero() && len(rows) > 0 {
		to = rows[len(rows)-1].StartTime
	}
	if from.IsZero() || to.IsZero() {
		return "All feedings"
	}
	return fmt.Sprintf("%s to %s", from.In(loc).Format("2 Jan 2006"), to.In(loc).Format("2 Jan 2006"))
}

func totalsLabel(sum domain.DailySummary, n int) string {
	return fmt.Sprintf("%d feedings, %d min in total, %d ml by bottle", n, sum.TotalTime, sum.BottleVolume)
}

func dayLabel(d domain.DailySummary) string {
	parts := []string{fmt.Sprintf("%d feedings", d.TotalSessions), fmt.Sprintf("%d min", d.TotalTime)}
	if d.LeftBreastTime > 0 {
		parts = append(parts, fmt.Sprintf("left %d", d.LeftBreastTime))
	}
	if d.RightBreastTime > 0 {
		parts = append(parts, fmt.Sprintf("right %d", d.RightBreastTime))
	}
	if d.BothBreastsTime > 0 {
		parts = append(parts, fmt.Sprintf("both %d", d.BothBreastsTime))
	}
	if d.BottleTime > 0 {
		parts = append(parts, fmt.Sprintf("bottle %d (%d ml)", d.BottleTime, d.BottleVolume))
	}
	return fmt.Sprintf("%s: %s", d.Date.Format("Mon 2 Jan 2006"), strings.Join(parts, ", "))
}

func sessionLabel(s domain.FeedingSession, loc *time.Location) string {
	label := fmt.Sprintf("%s  %-12s %3d min", s.StartTime.In(loc).Format("15:04"), s.Type.Label(), s.Duration)
	if s.BottleVolume != nil {
		label += fmt.Sprintf("  %d ml", *s.BottleVolume)
	}
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		if r := []rune(notes); len(r) > maxNoteLength {
			notes = string(r[:maxNoteLength-3]) + "..."
		}
		label += "  " + notes
	}
	return label
}
