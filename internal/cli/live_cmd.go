package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/store"
)

func newLiveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Time a feeding as it happens",
	}

	cmd.AddCommand(
		newLiveStartCmd(app),
		newLiveMutateCmd(app, "pause", "Pause the timer", "Paused.", app.Store.PauseLive),
		newLiveMutateCmd(app, "resume", "Resume the timer", "Resumed.", app.Store.ResumeLive),
		newLiveMutateCmd(app, "switch", "Switch between left and right", "Switched side.", app.Store.SwitchSide),
		newLiveStatusCmd(app),
		newLiveEndCmd(app),
		newLiveDiscardCmd(app),
		newLiveTrackCmd(app),
	)

	return cmd
}

func printLive(w io.Writer, l *domain.LiveSession, now time.Time) {
	fmt.Fprintln(w, formatter.RenderBox("Live feeding", formatter.LiveStatus(l, now)))
}

func newLiveStartCmd(app *App) *cobra.Command {
	var ft domain.FeedingType
	var volume int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start timing a feeding",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			vol := volumePtr(volume)
			if ft == domain.FeedingBottle && vol == nil {
				v := domain.DefaultBottleVolML
				vol = &v
			}
			l, err := app.Store.StartLive(ctx, ft, vol)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s feeding started.\n", formatter.Success("✔"), l.Type.Label())
			printLive(out, l, app.now())
			return nil
		},
	}

	cmd.Flags().Var(newFeedingTypeValue(domain.FeedingLeft, &ft), "type", "left, right, both or bottle")
	cmd.Flags().IntVar(&volume, "volume", 0, "bottle volume in ml (bottle only)")
	return cmd
}

func newLiveMutateCmd(app *App, use, short, done string, fn func(context.Context) (*domain.LiveSession, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			l, err := fn(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success(done))
			printLive(out, l, app.now())
			return nil
		},
	}
}

func newLiveStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the live feeding, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			l, err := app.Store.Live(ctx)
			if errors.Is(err, domain.ErrNoLiveSession) {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No feeding in progress."))
				return nil
			}
			if err != nil {
				return err
			}
			printLive(cmd.OutOrStdout(), l, app.now())
			return nil
		},
	}
}

func newLiveEndCmd(app *App) *cobra.Command {
	var notes string
	var duration int

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Stop the timer and save the feeding",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			l, err := app.Store.Live(ctx)
			if err != nil {
				return err
			}

			if app.IsInteractive() && !cmd.Flags().Changed("notes") && !cmd.Flags().Changed("duration") {
				timed := strconv.Itoa(domain.ActiveMinutes(l.Elapsed(app.Now())))
				minutes := timed
				if err := endForm(&notes, &minutes).Run(); err != nil {
					return err
				}
				if minutes != timed {
					duration = atoiOr(minutes, 0)
				}
			}

			saved, err := app.Store.EndLive(ctx, store.EndOptions{Notes: notes, DurationMin: duration})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, %s saved.\n",
				formatter.Success("✔"), saved.Type.Label(), formatter.FormatMinutes(saved.Duration))
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "notes to save with the feeding")
	cmd.Flags().IntVar(&duration, "duration", 0, "save this many minutes instead of the timed duration")
	return cmd
}

func newLiveDiscardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the live feeding without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			if err := app.Store.DiscardLive(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Live feeding discarded.")
			return nil
		},
	}
}

func newLiveTrackCmd(app *App) *cobra.Command {
	var ft domain.FeedingType
	var volume int

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Open the live timer view",
		Long:  "Open the live timer view. With --type, a new feeding is started first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			if !app.IsInteractive() {
				return fmt.Errorf("%w: the live view needs an interactive terminal; use 'feedlog live status'", domain.ErrUnsupported)
			}

			var l *domain.LiveSession
			var err error
			if cmd.Flags().Changed("type") {
				vol := volumePtr(volume)
				if ft == domain.FeedingBottle && vol == nil {
					v := domain.DefaultBottleVolML
					vol = &v
				}
				l, err = app.Store.StartLive(ctx, ft, vol)
			} else {
				l, err = app.Store.Live(ctx)
			}
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(newLiveModel(ctx, app, l), tea.WithAltScreen()).Run()
			if err != nil {
				return err
			}
			m := final.(liveModel)
			out := cmd.OutOrStdout()
			switch {
			case m.saved != nil:
				fmt.Fprintf(out, "%s %s, %s saved.\n",
					formatter.Success("✔"), m.saved.Type.Label(), formatter.FormatMinutes(m.saved.Duration))
			case m.discarded:
				fmt.Fprintln(out, "Live feeding discarded.")
			default:
				fmt.Fprintln(out, formatter.Dim("Still timing. Run 'feedlog live track' to return."))
			}
			return nil
		},
	}

	cmd.Flags().Var(newFeedingTypeValue(domain.FeedingLeft, &ft), "type", "start a new feeding of this type")
	cmd.Flags().IntVar(&volume, "volume", 0, "bottle volume in ml (bottle only)")
	return cmd
}
