package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emrekiziltepe/binge-log/internal/app"
	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	appsync "github.com/emrekiziltepe/binge-log/internal/sync"
	"github.com/emrekiziltepe/binge-log/internal/theme"
)

func init() {
	// sync
	var watch bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and replay queued operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if identity.UserID(application.Identity) == "" {
				return errors.New("not signed in; run bingelog login first")
			}
			if watch {
				return runMonitor(ctx)
			}

			application.Sync.SetOnline(ctx, true)
			status := application.Sync.Status()
			pending, err := application.Queue.Pending(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.StatusLines(application.Theme(ctx), status, len(pending)))
			return status.LastError
		},
	}
	syncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep syncing in the background and show live status")
	rootCmd.AddCommand(syncCmd)

	// login
	loginCmd := &cobra.Command{
		Use:   "login TOKEN",
		Short: "Sign in with a session token from the identity provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if application.Session == nil {
				return errors.New("identity is not keyring-backed")
			}
			user, err := application.Session.Login(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", displayName(user))
			// Records logged while signed out stay in the anonymous scope.
			application.Sync.SetOnline(cmd.Context(), true)
			return nil
		},
	}
	rootCmd.AddCommand(loginCmd)

	// logout
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if application.Session == nil {
				return errors.New("identity is not keyring-backed")
			}
			if err := application.Session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
	rootCmd.AddCommand(logoutCmd)

	// whoami
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := application.Identity.CurrentUser()
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), displayName(user))
			return nil
		},
	}
	rootCmd.AddCommand(whoamiCmd)

	// prefs
	prefsCmd := &cobra.Command{
		Use:   "prefs [theme|language] [VALUE]",
		Short: "Show or change display preferences",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prefs := application.Prefs
			if len(args) == 2 {
				var err error
				switch args[0] {
				case "theme":
					err = prefs.SetTheme(ctx, theme.ForName(args[1]).Name)
				case "language":
					err = prefs.SetLanguage(ctx, args[1])
				default:
					return fmt.Errorf("unknown preference %q", args[0])
				}
				if err != nil {
					return err
				}
			} else if len(args) == 1 {
				return errors.New("a value is required")
			}

			th, err := prefs.Theme(ctx)
			if err != nil {
				return err
			}
			lang, err := prefs.Language(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme:    %s\nlanguage: %s\n", th, lang)
			return nil
		},
	}
	rootCmd.AddCommand(prefsCmd)
}

// runMonitor drives the orchestrator from connectivity edges while the
// status monitor is open.
func runMonitor(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var conn appsync.Connectivity
	if prober := application.Connectivity(); prober != nil {
		go prober.Run(ctx)
		conn = prober
	}
	done := make(chan error, 1)
	go func() { done <- application.Sync.Run(ctx, conn) }()

	_, err := tea.NewProgram(app.NewMonitor(application, application.Theme(ctx))).Run()
	application.Sync.Stop()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		application.Log.Warn().Err(runErr).Msg("sync loop stopped")
	}
	return err
}

func displayName(u *identity.User) string {
	if u.Email != "" {
		return fmt.Sprintf("%s (%s)", u.Email, u.ID)
	}
	return u.ID
}

// goalDate parses a --date flag, defaulting to now.
func goalDate(s string) (time.Time, error) {
	if s == "" {
		return application.Now(), nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	return t, nil
}
