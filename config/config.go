// Package config resolves editor settings from the environment, an optional .env
// file and an optional config file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultSlidesPath    = "/app/presentation/slides.md"
	DefaultExportCommand = "npx slidev export --output slides-export.pdf"
	AppName              = "Sli.dev Editor"
)

type Config struct {
	Port            int
	SlidesPath      string
	DefaultDocument string
	ThemesDir       string
	DefaultTheme    string
	DatabaseURL     string
	HistoryLimit    int
	EditorPassword  string
	SlidevURL       string
	PublicDir       string
	ExportDir       string
	ExportCommand   string
	ExportTimeout   time.Duration
	LogLevel        string
}

// SlidesDir is the directory holding presentations and their history.
func (c *Config) SlidesDir() string {
	return filepath.Dir(c.SlidesPath)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("slides_path", DefaultSlidesPath)
	v.SetDefault("default_document", "slides")
	v.SetDefault("themes_dir", "")
	v.SetDefault("default_theme", "default")
	v.SetDefault("database_url", "")
	v.SetDefault("history_limit", 10)
	v.SetDefault("editor_password", "")
	v.SetDefault("slidev_url", "http://localhost:3030")
	v.SetDefault("public_dir", "public")
	v.SetDefault("export_dir", "")
	v.SetDefault("export_command", DefaultExportCommand)
	v.SetDefault("export_timeout", 5*time.Minute)
	v.SetDefault("log_level", "info")
}

// Load reads .env (if present), then the environment, then cfgFile (if given).
// Environment variables use the upper-case key, e.g. SLIDES_PATH.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Debug("No .env file found, using environment variables from OS")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from v and fills the derived defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetInt("port"),
		SlidesPath:      strings.TrimSpace(v.GetString("slides_path")),
		DefaultDocument: strings.TrimSpace(v.GetString("default_document")),
		ThemesDir:       strings.TrimSpace(v.GetString("themes_dir")),
		DefaultTheme:    strings.TrimSpace(v.GetString("default_theme")),
		DatabaseURL:     strings.TrimSpace(v.GetString("database_url")),
		HistoryLimit:    v.GetInt("history_limit"),
		EditorPassword:  v.GetString("editor_password"),
		SlidevURL:       strings.TrimSpace(v.GetString("slidev_url")),
		PublicDir:       v.GetString("public_dir"),
		ExportDir:       strings.TrimSpace(v.GetString("export_dir")),
		ExportCommand:   v.GetString("export_command"),
		ExportTimeout:   v.GetDuration("export_timeout"),
		LogLevel:        v.GetString("log_level"),
	}

	if cfg.SlidesPath == "" {
		return nil, fmt.Errorf("slides_path must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if !model.ValidName(cfg.DefaultDocument) {
		return nil, fmt.Errorf("default_document %q is not a valid name (letters, digits, '-' and '_')", cfg.DefaultDocument)
	}
	if !model.ValidName(cfg.DefaultTheme) {
		return nil, fmt.Errorf("default_theme %q is not a valid name (letters, digits, '-' and '_')", cfg.DefaultTheme)
	}
	if cfg.HistoryLimit < 1 {
		return nil, fmt.Errorf("history_limit must be at least 1, got %d", cfg.HistoryLimit)
	}
	if cfg.ThemesDir == "" {
		cfg.ThemesDir = filepath.Join(cfg.SlidesDir(), "themes")
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = cfg.SlidesDir()
	}
	return cfg, nil
}
