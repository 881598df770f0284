package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
)

func newSummaryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Daily and weekly feeding totals",
	}

	cmd.AddCommand(
		newSummaryDayCmd(app),
		newSummaryWeekCmd(app),
	)

	return cmd
}

func newSummaryDayCmd(app *App) *cobra.Command {
	var date string
	var showSessions bool

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Totals for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			now := app.now()
			day, err := parseDay(date, now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title := fmt.Sprintf("%s · %s", formatter.HumanDate(day, now), day.Format("Mon Jan 2"))
			fmt.Fprintln(out, formatter.RenderBox(title, formatter.DailySummary(app.Store.Daily(day))))
			if showSessions {
				if sessions := newestFirst(app.Store.SessionsOn(day)); len(sessions) > 0 {
					fmt.Fprintln(out, formatter.SessionTable(sessions, app.Location))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "today, yesterday or YYYY-MM-DD")
	cmd.Flags().BoolVar(&showSessions, "sessions", false, "list the day's feedings under the totals")
	return cmd
}

func newSummaryWeekCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Totals for each day of a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			day, err := parseDay(date, app.now())
			if err != nil {
				return err
			}

			w := app.Store.Weekly(day)
			title := fmt.Sprintf("Week of %s", w.WeekStart.Format("Mon Jan 2, 2006"))
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox(title, formatter.WeeklySummary(w)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "any day in the week: today, yesterday or YYYY-MM-DD")
	return cmd
}
