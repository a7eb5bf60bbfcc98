package cmd

import (
	"context"
	"fmt"
	"os"

	"deckeditor/config"
	"deckeditor/internal/app"
	"deckeditor/internal/content/service"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "deckeditor",
	Short: "Browser editor and versioned content store for Sli.dev decks",
	Long: `deckeditor serves the slide editor, stores presentations and themes on disk
or in a database, keeps a bounded history of every save, proxies the live
preview and runs PDF exports.

Running it without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; environment variables and .env are always read)")
}

// loadConfig resolves configuration and starts the logger. Maintenance commands log
// at warn so their stdout stays readable.
func loadConfig(quiet bool) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if quiet && level != "debug" {
		level = "warn"
	}
	logger.Init(level)
	return cfg, nil
}

// openStore opens the content store without a notifier, for one-shot commands.
func openStore(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Open(ctx, cfg, afero.NewOsFs(), nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

// storeFor picks the theme or presentation namespace.
func storeFor(a *app.App, theme bool) *service.ContentService {
	if theme {
		return a.Themes.ContentService
	}
	return a.Presentations
}
