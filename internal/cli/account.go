package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/auth"
)

// userView renders a signed-in user.
type userView struct {
	*auth.User
}

func (u userView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Signed in as %s (uid %s)\n", u.Email, u.UID)
	return err
}

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, creating the account on first use",
		Long: `Sign in with an email and password. When no account exists for the
email, one is created with the given password. The session is saved so later
commands run as this user until logout.

Example:
  roster login --email boss@example.com --password hunter22`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	a, err := opts.openApp(ctx, f)
	if err != nil {
		return err
	}
	defer a.Close()

	f.VerboseLog("Signing in as %s", opts.Email)
	u, err := a.Client().Login(ctx, opts.Email, opts.Password)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(userView{u})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and forget the saved session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(commandContext(cmd), f)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Client().Logout(); err != nil {
				return f.Fail(err)
			}
			return f.Success("Signed out")
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the signed-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(commandContext(cmd), f)
			if err != nil {
				return err
			}
			defer a.Close()

			u := a.Client().CurrentUser()
			if u == nil {
				return f.Fail(auth.ErrNotSignedIn)
			}
			return f.Success(userView{u})
		},
	}
}
