package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/summary"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "List, edit and remove recorded feedings",
	}

	cmd.AddCommand(
		newHistoryListCmd(app),
		newHistoryShowCmd(app),
		newHistoryEditCmd(app),
		newHistoryRemoveCmd(app),
	)

	return cmd
}

// resolveSession finds a cached session by full id or unique id prefix.
func resolveSession(app *App, ref string) (domain.FeedingSession, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.FeedingSession{}, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	if s, err := app.Store.Get(ref); err == nil {
		return s, nil
	}
	var matches []domain.FeedingSession
	for _, s := range app.Store.Sessions() {
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return domain.FeedingSession{}, fmt.Errorf("feeding session %q: %w", ref, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return domain.FeedingSession{}, fmt.Errorf("%w: id prefix %q matches %d feedings", domain.ErrValidation, ref, len(matches))
	}
}

func newHistoryListCmd(app *App) *cobra.Command {
	var date string
	var days int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			now := app.now()

			var sessions []domain.FeedingSession
			var title string
			if cmd.Flags().Changed("date") {
				day, err := parseDay(date, now)
				if err != nil {
					return err
				}
				sessions = newestFirst(app.Store.SessionsOn(day))
				title = formatter.HumanDate(day, now)
			} else {
				if days < 1 {
					return fmt.Errorf("%w: --days must be at least 1", domain.ErrValidation)
				}
				today, _ := parseDay("", now)
				from := today.AddDate(0, 0, -(days - 1))
				_, to := summary.DayBounds(today)
				sessions = newestFirst(summary.InRange(app.Store.Sessions(), from, to))
				title = fmt.Sprintf("Last %d days", days)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, formatter.Dim("No feedings recorded."))
				return nil
			}
			fmt.Fprintln(out, formatter.RenderBox(title, formatter.SessionTable(sessions, app.Location)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "show one day: today, yesterday or YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 7, "show the last N days")
	cmd.MarkFlagsMutuallyExclusive("date", "days")
	return cmd
}

// newestFirst orders sessions by start time, latest first. The cache keeps
// insertion order for sessions added since the last load.
func newestFirst(sessions []domain.FeedingSession) []domain.FeedingSession {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one feeding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			s, err := resolveSession(app, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Feeding", formatter.SessionDetail(s, app.Location)))
			return nil
		},
	}
}

func newHistoryEditCmd(app *App) *cobra.Command {
	var f logFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a recorded feeding",
		Long:  "Change a recorded feeding. Only the flags given are changed; the id may be a unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			s, err := resolveSession(app, args[0])
			if err != nil {
				return err
			}
			updated, err := applyEdits(s, f, cmd.Flags().Changed, app.Location)
			if err != nil {
				return err
			}
			if err := app.Store.Update(ctx, updated); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success("✔ Feeding updated."))
			fmt.Fprintln(out, formatter.SessionDetail(updated, app.Location))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.date, "date", "", "move to another day (YYYY-MM-DD)")
	flags.StringVar(&f.start, "start", "", "new start time HH:MM")
	flags.StringVar(&f.end, "end", "", "new end time HH:MM")
	flags.IntVar(&f.duration, "duration", 0, "new duration in minutes")
	flags.Var(newFeedingTypeValue(domain.FeedingLeft, &f.ft), "type", "new feeding type")
	flags.IntVar(&f.volume, "volume", 0, "new bottle volume in ml")
	flags.StringVar(&f.notes, "notes", "", "replace the notes")
	cmd.MarkFlagsMutuallyExclusive("duration", "end")
	return cmd
}

// applyEdits returns s with the changed flags applied. Start and end keep
// their wall-clock meaning in loc.
func applyEdits(s domain.FeedingSession, f logFlags, changed func(string) bool, loc *time.Location) (domain.FeedingSession, error) {
	start := s.StartTime.In(loc)
	if changed("date") {
		day, err := parseDay(f.date, start)
		if err != nil {
			return s, err
		}
		y, m, d := day.Date()
		start = time.Date(y, m, d, start.Hour(), start.Minute(), start.Second(), 0, loc)
	}
	if changed("start") {
		t, err := at(start, f.start)
		if err != nil {
			return s, err
		}
		start = t
	}
	s.StartTime = start

	switch {
	case changed("duration"):
		s.Duration = f.duration
	case changed("end"):
		end, err := at(start, f.end)
		if err != nil {
			return s, err
		}
		s.Duration = minutesBetween(start, end)
	}
	end := start.Add(time.Duration(s.Duration) * time.Minute)
	s.EndTime = &end

	if changed("type") {
		s.Type = f.ft
		if s.Type != domain.FeedingBottle {
			s.BottleVolume = nil
		} else if s.BottleVolume == nil {
			v := domain.DefaultBottleVolML
			s.BottleVolume = &v
		}
	}
	if changed("volume") {
		s.BottleVolume = volumePtr(f.volume)
	}
	if changed("notes") {
		s.Notes = f.notes
	}
	return s, nil
}

func newHistoryRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Delete a recorded feeding",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			s, err := resolveSession(app, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.Remove(ctx, s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s feeding of %s (%s).\n",
				s.Type.Label(), s.StartTime.In(app.Location).Format("Jan 2 15:04"), formatter.TruncID(s.ID))
			return nil
		},
	}
}
