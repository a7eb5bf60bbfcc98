package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deckeditor/internal/app"
	"deckeditor/internal/export"
	"deckeditor/middleware"
	"deckeditor/pkg/logger"
	"deckeditor/preview"
	"deckeditor/router"
	"deckeditor/socket"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor server",
	Long: `Start the editor HTTP server.

Examples:
  deckeditor serve
  PORT=8080 DATABASE_URL=sqlite:file:/data/deck.db deckeditor serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsys := afero.NewOsFs()

	// The hub's event loop runs beside the HTTP server.
	hub := socket.NewHub()
	go hub.Run()
	defer hub.Stop()

	a, err := app.Open(ctx, cfg, fsys, hub)
	if err != nil {
		return err
	}
	defer a.Close()

	coordinator := export.NewCoordinator(fsys, cfg.ExportDir, nil)
	runner := export.NewCommandRunner(cfg.ExportCommand, cfg.SlidesDir(), cfg.ExportTimeout)

	previewProxy, err := preview.NewProxy(cfg.SlidevURL)
	if err != nil {
		logger.Sugar.Warnf("Preview proxy disabled: %v", err)
	}

	auth := middleware.NewAuth(cfg.EditorPassword)
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(router.Deps{
			Config:  cfg,
			App:     a,
			Export:  export.NewService(coordinator, runner),
			Hub:     hub,
			Auth:    auth,
			Preview: previewProxy,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infow("Editor listening",
			"addr", srv.Addr,
			"slidev_url", cfg.SlidevURL,
			"slides_path", cfg.SlidesPath,
			"storage", a.Mode,
			"auth", auth.Enabled(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
