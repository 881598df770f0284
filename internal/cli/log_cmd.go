package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
)

type logFlags struct {
	date     string
	start    string
	end      string
	duration int
	ft       domain.FeedingType
	volume   int
	notes    string
}

// session builds the feeding described by the flags in now's location.
func (f logFlags) session(now time.Time) (domain.FeedingSession, error) {
	if f.start == "" {
		return domain.FeedingSession{}, fmt.Errorf("%w: --start is required", domain.ErrValidation)
	}
	day, err := parseDay(f.date, now)
	if err != nil {
		return domain.FeedingSession{}, err
	}
	start, err := at(day, f.start)
	if err != nil {
		return domain.FeedingSession{}, err
	}

	minutes := f.duration
	switch {
	case f.end != "" && f.duration != 0:
		return domain.FeedingSession{}, fmt.Errorf("%w: use either --duration or --end", domain.ErrValidation)
	case f.end != "":
		end, err := at(day, f.end)
		if err != nil {
			return domain.FeedingSession{}, err
		}
		minutes = minutesBetween(start, end)
	case f.duration == 0:
		return domain.FeedingSession{}, fmt.Errorf("%w: --duration or --end is required", domain.ErrValidation)
	}

	end := start.Add(time.Duration(minutes) * time.Minute)
	return domain.FeedingSession{
		StartTime:    start,
		EndTime:      &end,
		Duration:     minutes,
		Type:         f.ft,
		BottleVolume: volumePtr(f.volume),
		Notes:        f.notes,
	}, nil
}

func newLogCmd(app *App) *cobra.Command {
	var f logFlags

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a past feeding",
		Long: `Record a feeding that already happened.

Without flags on an interactive terminal a form is shown.`,
		Example: `  feedlog log --start 08:30 --duration 15 --type left
  feedlog log --date yesterday --start 23:10 --end 23:35 --type right
  feedlog log --start 17:00 --duration 10 --type bottle --volume 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			now := app.now()

			var sess domain.FeedingSession
			var err error
			if cmd.Flags().NFlag() == 0 && app.IsInteractive() {
				v := newLogFormValues(now)
				if err := logForm(v).Run(); err != nil {
					return err
				}
				sess, err = v.session(now)
			} else {
				sess, err = f.session(now)
			}
			if err != nil {
				return err
			}

			saved, err := app.Store.Add(ctx, sess)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s at %s, %s  %s\n",
				formatter.Success("✔ Logged"),
				saved.Type.Label(),
				formatter.RelativeDayFrom(saved.StartTime.In(app.Location), now),
				saved.StartTime.In(app.Location).Format("15:04"),
				formatter.FormatMinutes(saved.Duration),
				formatter.TruncID(saved.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "", "day of the feeding: today, yesterday or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.start, "start", "", "start time HH:MM")
	cmd.Flags().StringVar(&f.end, "end", "", "end time HH:MM (alternative to --duration)")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "duration in minutes (1-480)")
	cmd.Flags().Var(newFeedingTypeValue(domain.FeedingLeft, &f.ft), "type", "left, right, both or bottle")
	cmd.Flags().IntVar(&f.volume, "volume", 0, "bottle volume in ml, required for bottle")
	cmd.Flags().StringVar(&f.notes, "notes", "", "optional notes")
	return cmd
}
