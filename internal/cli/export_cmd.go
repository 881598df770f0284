package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/export"
)

type exportFunc func(w io.Writer, sessions []domain.FeedingSession, opts export.Options) (int, error)

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export feedings as CSV or a PDF report",
	}

	cmd.AddCommand(
		newExportFormatCmd(app, "csv", "Export feedings as CSV", export.CSV),
		newExportFormatCmd(app, "pdf", "Export a printable PDF report", export.PDF),
	)

	return cmd
}

func newExportFormatCmd(app *App, format, short string, write exportFunc) *cobra.Command {
	var out, from, to string

	cmd := &cobra.Command{
		Use:   format,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.ready(ctx); err != nil {
				return err
			}
			now := app.now()
			opts := export.Options{
				Location:  app.Location,
				Title:     reportTitle(ctx, app),
				Generated: now,
			}
			if from != "" {
				d, err := parseDay(from, now)
				if err != nil {
					return err
				}
				opts.From = d
			}
			if to != "" {
				d, err := parseDay(to, now)
				if err != nil {
					return err
				}
				opts.To = d
			}
			if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
				return fmt.Errorf("%w: --to is before --from", domain.ErrValidation)
			}

			if strings.TrimSpace(out) == "" {
				out = fmt.Sprintf("feedlog-%s.%s", now.Format("2006-01-02"), format)
			}
			if out == "-" {
				_, err := write(cmd.OutOrStdout(), app.Store.Sessions(), opts)
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export %s: %w", format, err)
			}
			n, err := write(f, app.Store.Sessions(), opts)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close export file: %w", cerr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d feeding(s) to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, or - for stdout (default feedlog-DATE."+format+")")
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

// reportTitle names the child when the profile has one.
func reportTitle(ctx context.Context, app *App) string {
	const title = "Feeding report"
	id := app.Auth.Current()
	if id == nil {
		return title
	}
	p, err := app.Backend.Profiles.Get(ctx, id.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			app.Logger.Debug("profile_lookup_failed", "error", err.Error())
		}
		return title
	}
	if p.ChildName == "" {
		return title
	}
	return title + ": " + p.ChildName
}
