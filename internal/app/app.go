// Package app assembles the content store from configuration: it picks the storage
// backend once at startup and wires the services on top of it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"deckeditor/config"
	"deckeditor/config/database"
	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"
	"deckeditor/internal/content/service"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
)

type Mode string

const (
	ModeFilesystem Mode = "filesystem"
	ModeDatabase   Mode = "database"
)

const (
	PresentationExt  = ".md"
	ThemeExt         = ".css"
	historyDir       = ".history"
	bindingsFileName = ".active-themes.json"
)

type App struct {
	Presentations *service.ContentService
	Themes        *service.ThemeService
	Mode          Mode
	DB            *sql.DB
	Dialect       database.Dialect

	// Migrated counts the documents copied from disk at startup; MigrationErr
	// holds what failed. Both stay zero in filesystem mode.
	Migrated     int
	MigrationErr error
}

type stores struct {
	presentations       repository.Backend
	presentationHistory repository.Ledger
	themes              repository.Backend
	themeHistory        repository.Ledger
	bindings            repository.ThemeBindings
}

// Open selects the database when cfg.DatabaseURL is set and reachable, otherwise the
// filesystem. The choice holds for the life of the process; a database failure here
// is logged and never retried.
func Open(ctx context.Context, cfg *config.Config, fsys afero.Fs, notifier service.Notifier) (*App, error) {
	files := fileStores(fsys, cfg)
	a := &App{Mode: ModeFilesystem}
	active := files

	if cfg.DatabaseURL != "" {
		db, dialect, err := database.Connect(ctx, cfg.DatabaseURL)
		if err == nil {
			if err = database.EnsureSchema(ctx, db, dialect); err != nil {
				_ = db.Close()
				err = apperror.Unavailable(err)
			}
		}
		if err != nil {
			logger.Sugar.Warnf("Database unavailable, falling back to filesystem storage: %v", err)
		} else {
			a.Mode, a.DB, a.Dialect = ModeDatabase, db, dialect
			active = sqlStores(db, dialect, cfg, files)
			a.Migrated, a.MigrationErr = migrateDefaults(ctx, cfg, active, files)
			syncServedFiles(ctx, cfg, active)
		}
	}

	presentations := service.NewContentService(active.presentations, active.presentationHistory, model.KindPresentation, cfg.DefaultDocument)
	themes := service.NewContentService(active.themes, active.themeHistory, model.KindTheme, cfg.DefaultTheme)
	if notifier != nil {
		presentations.Notifier = notifier
		themes.Notifier = notifier
	}
	a.Presentations = presentations
	a.Themes = service.NewThemeService(themes, active.bindings, active.presentations)

	logger.Sugar.Infof("Content store ready (mode=%s, history_limit=%d)", a.Mode, cfg.HistoryLimit)
	return a, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func fileStores(fsys afero.Fs, cfg *config.Config) stores {
	slidesDir := cfg.SlidesDir()
	return stores{
		presentations: repository.NewFileBackend(fsys, repository.FileBackendConfig{
			Dir:         slidesDir,
			Ext:         PresentationExt,
			DefaultName: cfg.DefaultDocument,
			DefaultPath: cfg.SlidesPath,
		}),
		presentationHistory: repository.NewFileLedger(fsys, filepath.Join(slidesDir, historyDir), PresentationExt, cfg.HistoryLimit, nil),
		themes: repository.NewFileBackend(fsys, repository.FileBackendConfig{
			Dir:         cfg.ThemesDir,
			Ext:         ThemeExt,
			DefaultName: cfg.DefaultTheme,
		}),
		themeHistory: repository.NewFileLedger(fsys, filepath.Join(cfg.ThemesDir, historyDir), ThemeExt, cfg.HistoryLimit, nil),
		bindings:     repository.NewFileBindings(fsys, filepath.Join(cfg.ThemesDir, bindingsFileName)),
	}
}

// sqlStores keeps documents in the database and writes them through to the files
// the preview server and the export read.
func sqlStores(db *sql.DB, dialect database.Dialect, cfg *config.Config, files stores) stores {
	return stores{
		presentations: repository.NewMirroredBackend(
			repository.NewSQLBackend(db, dialect, database.PresentationsTable, cfg.DefaultDocument, nil),
			files.presentations),
		presentationHistory: repository.NewSQLLedger(db, dialect, database.PresentationHistoryTable, cfg.HistoryLimit, nil),
		themes: repository.NewMirroredBackend(
			repository.NewSQLBackend(db, dialect, database.ThemesTable, cfg.DefaultTheme, nil),
			files.themes),
		themeHistory:        repository.NewSQLLedger(db, dialect, database.ThemeHistoryTable, cfg.HistoryLimit, nil),
		bindings:            repository.NewSQLBindings(db, dialect),
	}
}

// migrateDefaults copies the default presentation and theme from disk into the
// database. Failures are reported, not fatal.
func migrateDefaults(ctx context.Context, cfg *config.Config, target, source stores) (int, error) {
	copied := 0
	var errs []error
	for _, step := range []struct {
		target, source repository.Backend
		name           string
	}{
		{target.presentations, source.presentations, cfg.DefaultDocument},
		{target.themes, source.themes, cfg.DefaultTheme},
	} {
		ok, err := service.Migrate(ctx, step.target, step.source, step.name)
		if err != nil {
			logger.Sugar.Warnf("Failed to migrate %s into the database: %v", step.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		if ok {
			copied++
		}
	}
	return copied, errors.Join(errs...)
}

// syncServedFiles brings the default presentation, its active theme and the default
// theme on disk up to date with the database. Failures leave the files stale and are
// only logged.
func syncServedFiles(ctx context.Context, cfg *config.Config, active stores) {
	type syncer interface {
		Sync(ctx context.Context, name string) error
	}
	refresh := func(b repository.Backend, name string) {
		s, ok := b.(syncer)
		if !ok || name == "" {
			return
		}
		if err := s.Sync(ctx, name); err != nil {
			logger.Sugar.Warnf("Failed to refresh %s on disk: %v", name, err)
		}
	}

	refresh(active.presentations, cfg.DefaultDocument)
	refresh(active.themes, cfg.DefaultTheme)
	if theme, err := active.bindings.ActiveTheme(ctx, cfg.DefaultDocument); err == nil && theme != cfg.DefaultTheme {
		refresh(active.themes, theme)
	}
}
