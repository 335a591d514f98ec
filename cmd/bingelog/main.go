package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emrekiziltepe/binge-log/internal/app"
	"github.com/emrekiziltepe/binge-log/internal/logger"
	"github.com/emrekiziltepe/binge-log/internal/model"
)

var (
	configFlag   string
	logLevelFlag string

	// application is opened before every command and closed after it.
	application *app.App

	rootCmd = &cobra.Command{
		Use:           "bingelog",
		Short:         "Offline-first journal for books, series, movies, games, education and sport",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(configFlag)
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if logLevelFlag != "" {
				level = logLevelFlag
			}
			log := logger.Console("bingelog", level)

			application, err = app.New(cmd.Context(), cfg, log, app.Options{})
			if err != nil {
				return fmt.Errorf("starting: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application != nil {
				application.Close()
			}
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", model.DefaultConfigPath(), "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		th := themeOrDefault()
		fmt.Fprintln(os.Stderr, th.Error().Render(err.Error()))
		if application != nil {
			application.Close()
		}
		stop()
		os.Exit(1)
	}
}
