package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRegisterCmd(app *appState) *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := app.password(cmd.Context(), password)
			if err != nil {
				return err
			}
			d, err := app.session.SignUp(cmd.Context(), args[0], pass, name)
			if err != nil {
				return err
			}
			if d.AccessToken == "" {
				fmt.Fprintln(app.out, "Account created. Check your email to confirm it, then run 'scribe login'.")
				return nil
			}
			fmt.Fprintf(app.out, "Signed in as %s\n", userName(d.User))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (SCRIBE_PASSWORD), asked if empty")
	return cmd
}

func newLoginCmd(app *appState) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := app.password(cmd.Context(), password)
			if err != nil {
				return err
			}
			d, err := app.session.SignIn(cmd.Context(), args[0], pass)
			if err != nil {
				if errors.Is(err, api.ErrEmailUnconfirmed) {
					fmt.Fprintf(app.out, "Email is not confirmed. Run 'scribe resend %s' to get a new confirmation email.\n", args[0])
				}
				return err
			}
			fmt.Fprintf(app.out, "Signed in as %s\n", userName(d.User))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (SCRIBE_PASSWORD), asked if empty")
	return cmd
}

func newLogoutCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := app.session.Current(cmd.Context())
			if err != nil {
				return err
			}
			if u == nil {
				fmt.Fprintln(app.out, "Not signed in")
				return nil
			}
			fmt.Fprintf(app.out, "%s <%s>\n", userName(u), u.Email)
			return nil
		},
	}
}

func newResendCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <email>",
		Short: "Send the confirmation email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.session.Resend(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.out, "Confirmation email sent")
			return nil
		},
	}
}

func newRecoverCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <email>",
		Short: "Send the password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.session.Recover(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.out, "Password reset email sent. Run 'scribe password --token <token>' with the token from the link.")
			return nil
		},
	}
}

func newPasswordCmd(app *appState) *cobra.Command {
	var password, token string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Set a new password",
		Long:  "Set a new password of the signed in user, or with the token of the password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := app.newPassword(cmd.Context(), password)
			if err != nil {
				return err
			}
			if _, err := app.session.UpdatePassword(cmd.Context(), token, pass); err != nil {
				return err
			}
			if token != "" {
				fmt.Fprintln(app.out, "Password updated. Run 'scribe login' to sign in.")
				return nil
			}
			fmt.Fprintln(app.out, "Password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token from the password reset link")
	cmd.Flags().StringVar(&password, "password", "", "New password (SCRIBE_PASSWORD), asked twice if empty")
	return cmd
}

func (a *appState) password(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("SCRIBE_PASSWORD"); v != "" {
		return v, nil
	}
	return a.askPassword(ctx, "Password: ")
}

// newPassword asks for the confirmation if the password is typed in
func (a *appState) newPassword(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("SCRIBE_PASSWORD"); v != "" {
		return v, nil
	}
	res, err := a.askPassword(ctx, "New password: ")
	if err != nil {
		return "", err
	}
	again, err := a.askPassword(ctx, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if res != again {
		return "", errors.New("passwords do not match")
	}
	return res, nil
}

func (a *appState) askPassword(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	if a.isTTY() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("can't read password: %w", err)
		}
		return string(b), nil
	}
	res, err := a.readLine(ctx)
	if err != nil {
		return "", fmt.Errorf("can't read password: %w", err)
	}
	return res, nil
}

func userName(u *api.User) string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
