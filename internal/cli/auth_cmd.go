package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign up, sign in and manage the current identity",
	}

	cmd.AddCommand(
		newAuthSignUpCmd(app),
		newAuthSignInCmd(app),
		newAuthSignOutCmd(app),
		newAuthWhoAmICmd(app),
		newAuthResetPasswordCmd(app),
	)

	return cmd
}

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password")
}

// resolve fills missing credentials from a form on interactive terminals.
func (f *credentialFlags) resolve(app *App) error {
	needPassword := app.Auth.NeedsPassword()
	if f.email != "" && (f.password != "" || !needPassword) {
		return nil
	}
	if !app.IsInteractive() {
		return nil
	}
	return credentialsForm(&f.email, &f.password, needPassword).Run()
}

func newAuthSignUpCmd(app *App) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := creds.resolve(app); err != nil {
				return err
			}
			id, signedIn, err := app.Auth.SignUp(context.Background(), creds.email, creds.password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !signedIn {
				fmt.Fprintf(out, "%s Check %s for a confirmation email, then run 'feedlog auth signin'.\n",
					formatter.Success("Account created."), id.Email)
				return nil
			}
			fmt.Fprintf(out, "%s Signed in as %s.\n", formatter.Success("Account created."), id.Email)
			return nil
		},
	}

	creds.register(cmd)
	return cmd
}

func newAuthSignInCmd(app *App) *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := creds.resolve(app); err != nil {
				return err
			}
			id, err := app.Auth.SignIn(context.Background(), creds.email, creds.password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", formatter.Success("Signed in as"), id.Email)
			return nil
		},
	}

	creds.register(cmd)
	return cmd
}

func newAuthSignOutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Auth.Current() == nil {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Not signed in."))
				return nil
			}
			if err := app.Auth.SignOut(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("Signed out."))
			return nil
		},
	}
}

func newAuthWhoAmICmd(app *App) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := app.Auth.Current()
			if id == nil {
				return domain.ErrUnauthenticated
			}
			if verify {
				var err error
				if id, err = app.Auth.Verify(context.Background()); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", formatter.Dim("Email  "), id.Email)
			fmt.Fprintf(out, "%s  %s\n", formatter.Dim("Owner  "), id.ID)
			fmt.Fprintf(out, "%s  %s\n", formatter.Dim("Backend"), app.Auth.Kind())
			if s := app.Auth.Session(); s != nil && !s.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "%s  %s\n", formatter.Dim("Expires"), s.ExpiresAt.In(app.Location).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "confirm the session with the backend")
	return cmd
}

func newAuthResetPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Send a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" && app.IsInteractive() {
				creds := credentialFlags{}
				if err := credentialsForm(&creds.email, &creds.password, false).Run(); err != nil {
					return err
				}
				email = creds.email
			}
			if err := app.Auth.ResetPassword(context.Background(), email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password reset email sent to %s.\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}
