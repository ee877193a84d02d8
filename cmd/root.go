package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hobbyhunter/storefront/hobbyhunter"
)

var (
	version    string
	commit     string
	configPath string
	userID     string
	app        *hobbyhunter.App
)

var rootCmd = &cobra.Command{
	Use:           "hobbyhunter",
	Short:         "HobbyHunter storefront client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := hobbyhunter.LoadConfig(configPath)
		if err != nil {
			return err
		}
		level := hobbyhunter.SetupLogger(cfg.Log, os.Stderr)

		a, err := hobbyhunter.New(cmd.Context(), *cfg, version, commit, nil)
		if err != nil {
			slog.Error("Failed to initialize client", slog.Any("error", err))
			return err
		}
		a.Start(level)
		app = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		a := app
		app = nil
		return a.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "act as this user id")
}

// currentUser prefers --user, then the signed in session, then the config.
func currentUser(ctx context.Context) string {
	if userID != "" {
		return userID
	}
	return app.CurrentUser(ctx)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(v, c string) {
	version, commit = v, c
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if app != nil {
			_ = app.Close()
		}
		stop()
		os.Exit(1)
	}
}
