package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/diagnostics"
)

func newDoctorCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, sign-in and backend access",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := func() string {
				if id := app.Auth.Current(); id != nil {
					return id.ID
				}
				return ""
			}
			checks := []diagnostics.Check{
				diagnostics.ConfigCheck(app.Config),
				diagnostics.StateDBCheck(app.StateDB),
				diagnostics.IdentityCheck(app.Auth),
				diagnostics.SessionTableCheck(app.Backend.Sessions, owner),
				diagnostics.ProfileTableCheck(app.Backend.Profiles, owner),
				diagnostics.ExportCheck(),
			}

			stop := func() {}
			if app.IsInteractive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Running checks...")
			}
			report := diagnostics.NewRunner(timeout).Run(context.Background(), checks)
			stop()

			fmt.Fprintln(cmd.OutOrStdout(), formatter.DoctorReport(report))
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", diagnostics.DefaultTimeout, "time limit per check")
	return cmd
}
