package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"deckeditor/internal/content/model"
	"deckeditor/internal/content/service"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

const maxBodyBytes = 10 << 20

// Store is the part of the content store the HTTP layer needs. Both
// *service.ContentService and *service.ThemeService satisfy it.
type Store interface {
	Get(ctx context.Context, name string) (model.Document, error)
	Save(ctx context.Context, name, content string) error
	Restore(ctx context.Context, name string, position int) error
	List(ctx context.Context) ([]model.Summary, error)
	Delete(ctx context.Context, name string) error
	History(ctx context.Context, name string) ([]model.HistoryEntry, error)
	Version(ctx context.Context, name string, position int) (model.Snapshot, error)
}

type ContentHandler struct {
	Store       Store
	DefaultName string
}

func NewContentHandler(store Store, defaultName string) *ContentHandler {
	return &ContentHandler{Store: store, DefaultName: defaultName}
}

// Document serves GET, POST and DELETE on a single document selected by ?name=.
func (h *ContentHandler) Document(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost, http.MethodPut:
		h.save(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ContentHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Store.Get(r.Context(), h.name(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *ContentHandler) save(w http.ResponseWriter, r *http.Request) {
	var req model.SaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	content, ok := req.Content.(string)
	if !ok {
		writeError(w, apperror.Invalid("content must be a string"))
		return
	}

	name := req.Name
	if name == "" {
		name = h.name(r)
	}
	if err := h.Store.Save(r.Context(), name, content); err != nil {
		logger.Sugar.Errorf("Handler: Failed to save %s: %v", name, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "name": name})
}

func (h *ContentHandler) delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing name parameter", http.StatusBadRequest)
		return
	}
	if err := h.Store.Delete(r.Context(), name); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete %s: %v", name, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "name": name})
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docs, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *ContentHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.Store.History(r.Context(), h.name(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ContentHandler) Version(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	position, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		http.Error(w, "Invalid position parameter", http.StatusBadRequest)
		return
	}
	snap, err := h.Store.Version(r.Context(), h.name(r), position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *ContentHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.RestoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Position == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := req.Name
	if name == "" {
		name = h.DefaultName
	}
	if err := h.Store.Restore(r.Context(), name, *req.Position); err != nil {
		logger.Sugar.Errorf("Handler: Failed to restore %s to %d: %v", name, *req.Position, err)
		writeError(w, err)
		return
	}

	doc, err := h.Store.Get(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *ContentHandler) name(r *http.Request) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	return h.DefaultName
}

// ThemeHandler adds the presentation -> theme binding endpoint to the theme routes.
type ThemeHandler struct {
	*ContentHandler
	Themes              *service.ThemeService
	DefaultPresentation string
}

func NewThemeHandler(themes *service.ThemeService, defaultPresentation string) *ThemeHandler {
	return &ThemeHandler{
		ContentHandler:      NewContentHandler(themes, themes.DefaultName),
		Themes:              themes,
		DefaultPresentation: defaultPresentation,
	}
}

// Active serves GET and PUT on the theme bound to ?doc=.
func (h *ThemeHandler) Active(w http.ResponseWriter, r *http.Request) {
	doc := r.URL.Query().Get("doc")
	if doc == "" {
		doc = h.DefaultPresentation
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		var req model.ActiveThemeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Theme == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Themes.SetActiveTheme(r.Context(), doc, req.Theme); err != nil {
			logger.Sugar.Errorf("Handler: Failed to set theme of %s: %v", doc, err)
			writeError(w, err)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	theme, err := h.Themes.ActiveTheme(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ActiveThemeResponse{Document: doc, Theme: theme})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperror.HTTPStatus(err), map[string]string{"error": err.Error()})
}
