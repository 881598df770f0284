package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/backend"
)

// NewRootCmd creates the top-level "feedlog" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedlog",
		Short:         "Baby feeding tracker",
		Long:          "Record live or past feedings and review daily and weekly totals.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		newAuthCmd(app),
		newLiveCmd(app),
		newLogCmd(app),
		newHistoryCmd(app),
		newSummaryCmd(app),
		newExportCmd(app),
		newProfileCmd(app),
		newDoctorCmd(app),
		newConfigCmd(app),
	)

	return root
}

// ErrorMessage formats err for the terminal with a hint naming the likely
// cause, when one is known.
func ErrorMessage(err error) string {
	msg := fmt.Sprintf("Error: %v", err)
	if hint := backend.Hint(err); hint != "" {
		msg += "\n" + hint
	}
	return msg
}
