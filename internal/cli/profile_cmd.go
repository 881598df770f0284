package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
)

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile and your child's details",
	}

	cmd.AddCommand(
		newProfileShowCmd(app),
		newProfileSetCmd(app),
	)

	return cmd
}

// loadProfile returns the signed-in owner's profile, or a fresh one when no
// row exists yet.
func loadProfile(ctx context.Context, app *App) (*domain.Profile, error) {
	id := app.Auth.Current()
	if id == nil {
		return nil, fmt.Errorf("%w: run 'feedlog auth signin' first", domain.ErrUnauthenticated)
	}
	p, err := app.Backend.Profiles.Get(ctx, id.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Profile{OwnerID: id.ID, Email: id.Email}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newProfileShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(context.Background(), app)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Profile", formatter.Profile(p, app.now())))
			return nil
		},
	}
}

func newProfileSetCmd(app *App) *cobra.Command {
	var name, childName, birth string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields",
		Example: `  feedlog profile set --name Sam --child-name Robin --child-birth-date 2025-05-01
  feedlog profile set --child-birth-date ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("child-name") && !flags.Changed("child-birth-date") {
				return fmt.Errorf("%w: nothing to change; pass --name, --child-name or --child-birth-date", domain.ErrValidation)
			}
			p, err := loadProfile(ctx, app)
			if err != nil {
				return err
			}

			if flags.Changed("name") {
				p.DisplayName = strings.TrimSpace(name)
			}
			if flags.Changed("child-name") {
				p.ChildName = strings.TrimSpace(childName)
			}
			if flags.Changed("child-birth-date") {
				d, err := parseBirthDate(birth, app.now())
				if err != nil {
					return err
				}
				p.ChildBirthDate = d
			}

			if err := app.Backend.Profiles.Upsert(ctx, p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success("✔ Profile saved."))
			fmt.Fprintln(out, formatter.Profile(p, app.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your display name")
	cmd.Flags().StringVar(&childName, "child-name", "", "child's name")
	cmd.Flags().StringVar(&birth, "child-birth-date", "", "child's birth date YYYY-MM-DD (empty clears it)")
	return cmd
}

// parseBirthDate returns nil for an empty value and rejects future dates.
func parseBirthDate(s string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: birth date %q must be YYYY-MM-DD", domain.ErrValidation, s)
	}
	y, m, day := now.Date()
	if d.After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		return nil, fmt.Errorf("%w: birth date %s is in the future", domain.ErrValidation, s)
	}
	return &d, nil
}
