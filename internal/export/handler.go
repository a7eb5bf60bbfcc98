package export

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// Start kicks off an export and answers 202, or 409 while one is running.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.Service.Start(nil); err != nil {
		logger.Sugar.Warnf("Handler: Export rejected: %v", err)
		writeJSON(w, apperror.HTTPStatus(err), map[string]string{"error": "Export already in progress"})
		return
	}
	writeJSON(w, http.StatusAccepted, h.Service.Status())
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Status())
}

// Download streams the most recent export output.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := h.Service.Status()
	if !st.OutputAvailable {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No export available"})
		return
	}

	f, err := h.Service.Coordinator.fs.Open(st.OutputPath)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to open export %s: %v", st.OutputPath, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read export"})
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read export"})
		return
	}

	name := filepath.Base(st.OutputPath)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
