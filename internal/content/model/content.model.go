package model

import (
	"fmt"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidName reports whether name can be used as a document name: it becomes a file
// name on disk and a key in the database.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

const (
	KindPresentation = "presentation"
	KindTheme        = "theme"
)

// Event types pushed to editors over the websocket hub.
const (
	EventSaved        = "SAVED"
	EventRestored     = "RESTORED"
	EventDeleted      = "DELETED"
	EventThemeChanged = "THEME_CHANGED"
)

type Document struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Summary struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Size      int64     `json:"size"`
	IsDefault bool      `json:"is_default"`
}

// Snapshot is an immutable copy of a document's content taken before a save or restore.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryEntry struct {
	Position  int       `json:"position"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label"`
	Size      int64     `json:"size"`
}

type Event struct {
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// HistoryLabel renders the relative marker shown for a history position.
// Position 0 is the state right before the latest save.
func HistoryLabel(position int) string {
	if position == 0 {
		return "Latest backup"
	}
	return fmt.Sprintf("%d saves ago", position+1)
}

type SaveRequest struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}

type RestoreRequest struct {
	Name     string `json:"name"`
	Position *int   `json:"position"`
}

type ActiveThemeRequest struct {
	Theme string `json:"theme"`
}

type ActiveThemeResponse struct {
	Document string `json:"document"`
	Theme    string `json:"theme"`
}
