package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// CSVHeader is the first record of every CSV export.
var CSVHeader = []string{"id", "date", "start_time", "end_time", "duration_min", "type", "bottle_volume_ml", "notes"}

// CSV writes the selected sessions, oldest first, and returns how many
// rows were written.
func CSV(w io.Writer, sessions []domain.FeedingSession, opts Options) (int, error) {
	loc := opts.location()
	rows := Select(sessions, opts)

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("write export csv header: %w", err)
	}
	for _, s := range rows {
		if err := cw.Write(csvRecord(s, loc)); err != nil {
			return 0, fmt.Errorf("write export csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush export csv: %w", err)
	}
	return len(rows), nil
}

func csvRecord(s domain.FeedingSession, loc *time.Location) []string {
	start := s.StartTime.In(loc)
	end := ""
	if s.EndTime != nil {
		end = s.EndTime.In(loc).Format(time.RFC3339)
	}
	volume := ""
	if s.BottleVolume != nil {
		volume = strconv.Itoa(*s.BottleVolume)
	}
	return []string{
		s.ID,
		start.Format("2006-01-02"),
		start.Format(time.RFC3339),
		end,
		strconv.Itoa(s.Duration),
		string(s.Type),
		volume,
		s.Notes,
	}
}
