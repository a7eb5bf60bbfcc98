package router

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deckeditor/config"
	"deckeditor/internal/app"
	contentHandler "deckeditor/internal/content"
	"deckeditor/internal/export"
	"deckeditor/middleware"
	"deckeditor/preview"
	"deckeditor/socket"
)

type Deps struct {
	Config  *config.Config
	App     *app.App
	Export  *export.Service
	Hub     *socket.Hub
	Auth    *middleware.Auth
	Preview http.Handler
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()
	auth := d.Auth.Middleware

	// Health stays reachable for container probes.
	mux.HandleFunc("/api/health", health)

	mux.Handle("/api/config", auth(http.HandlerFunc(configHandler(d.Config, d.App))))
	mux.Handle("/api/session", auth(http.HandlerFunc(d.Auth.Session)))

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(middleware.UserIDKey).(string)
		socket.ServeWs(d.Hub, w, r, userID)
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	slides := contentHandler.NewContentHandler(d.App.Presentations, d.Config.DefaultDocument)
	mux.Handle("/api/slides", auth(http.HandlerFunc(slides.Document)))
	mux.Handle("/api/slides/list", auth(http.HandlerFunc(slides.List)))
	mux.Handle("/api/slides/history", auth(http.HandlerFunc(slides.History)))
	mux.Handle("/api/slides/history/version", auth(http.HandlerFunc(slides.Version)))
	mux.Handle("/api/slides/restore", auth(http.HandlerFunc(slides.Restore)))

	themes := contentHandler.NewThemeHandler(d.App.Themes, d.Config.DefaultDocument)
	mux.Handle("/api/themes", auth(http.HandlerFunc(themes.Document)))
	mux.Handle("/api/themes/list", auth(http.HandlerFunc(themes.List)))
	mux.Handle("/api/themes/history", auth(http.HandlerFunc(themes.History)))
	mux.Handle("/api/themes/history/version", auth(http.HandlerFunc(themes.Version)))
	mux.Handle("/api/themes/restore", auth(http.HandlerFunc(themes.Restore)))
	mux.Handle("/api/themes/active", auth(http.HandlerFunc(themes.Active)))

	exports := export.NewHandler(d.Export)
	mux.Handle("/api/export", auth(http.HandlerFunc(exports.Start)))
	mux.Handle("/api/export/status", auth(http.HandlerFunc(exports.Status)))
	mux.Handle("/api/export/download", auth(http.HandlerFunc(exports.Download)))

	if d.Preview != nil {
		mux.Handle(preview.Prefix, auth(d.Preview))
	}

	mux.Handle("/", auth(SPAHandler(d.Config.PublicDir)))

	return middleware.CORSMiddleware(mux)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type configResponse struct {
	AppName         string `json:"appName"`
	SlidevURL       string `json:"slidevUrl"`
	PreviewPath     string `json:"previewPath"`
	Storage         string `json:"storage"`
	DefaultDocument string `json:"defaultDocument"`
	DefaultTheme    string `json:"defaultTheme"`
	HistoryLimit    int    `json:"historyLimit"`
}

func configHandler(cfg *config.Config, a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(configResponse{
			AppName:         config.AppName,
			SlidevURL:       cfg.SlidevURL,
			PreviewPath:     preview.Prefix,
			Storage:         string(a.Mode),
			DefaultDocument: cfg.DefaultDocument,
			DefaultTheme:    cfg.DefaultTheme,
			HistoryLimit:    cfg.HistoryLimit,
		})
	}
}

// SPAHandler serves files from dir and falls back to index.html for client-side routes.
func SPAHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
