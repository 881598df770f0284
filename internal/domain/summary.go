package domain

import "time"

// DailySummary aggregates the sessions that started on one calendar date.
// It is always derived, never stored.
type DailySummary struct {
	Date            time.Time // local midnight
	TotalSessions   int
	TotalTime       int // minutes
	LeftBreastTime  int
	RightBreastTime int
	BothBreastsTime int
	BottleTime      int
	BottleVolume    int // ml
}

// Add folds another summary's totals into d, keeping d's date.
func (d *DailySummary) Add(o DailySummary) {
	d.TotalSessions += o.TotalSessions
	d.TotalTime += o.TotalTime
	d.LeftBreastTime += o.LeftBreastTime
	d.RightBreastTime += o.RightBreastTime
	d.BothBreastsTime += o.BothBreastsTime
	d.BottleTime += o.BottleTime
	d.BottleVolume += o.BottleVolume
}

// DateKey returns the date as YYYY-MM-DD.
func (d DailySummary) DateKey() string {
	return d.Date.Format("2006-01-02")
}

// WeeklySummary holds seven consecutive daily summaries starting at WeekStart.
type WeeklySummary struct {
	WeekStart time.Time
	Days      [7]DailySummary
	Totals    DailySummary
}

// WeekStartDay selects the first day of a summary week.
type WeekStartDay string

const (
	WeekStartMonday WeekStartDay = "monday"
	WeekStartSunday WeekStartDay = "sunday"
)
