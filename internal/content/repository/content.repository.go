// Package repository holds the storage adapters behind the content store: a Backend
// for current document content, a Ledger for bounded history, and ThemeBindings for
// the presentation -> active theme mapping. Each has a filesystem and a SQL variant.
package repository

import (
	"context"
	"time"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/apperror"
)

// DefaultHistoryLimit is the retention used when a ledger is built with a non-positive limit.
const DefaultHistoryLimit = 10

// Backend reads and writes the current content of documents.
// Implementations have no retention logic.
type Backend interface {
	Read(ctx context.Context, name string) (model.Document, error)
	Write(ctx context.Context, name, content string) error
	List(ctx context.Context) ([]model.Summary, error)
	Delete(ctx context.Context, name string) error
}

// Ledger keeps the newest N snapshots per document, newest first.
type Ledger interface {
	Snapshot(ctx context.Context, name, content string) error
	List(ctx context.Context, name string) ([]model.HistoryEntry, error)
	Fetch(ctx context.Context, name string, position int) (model.Snapshot, error)
	Purge(ctx context.Context, name string) error
}

// ThemeBindings records which theme each presentation uses.
type ThemeBindings interface {
	ActiveTheme(ctx context.Context, doc string) (string, error)
	SetActiveTheme(ctx context.Context, doc, theme string) error
	DocumentsUsing(ctx context.Context, theme string) ([]string, error)
	Unbind(ctx context.Context, doc string) error
}

// Clock supplies timestamps; tests inject a fixed or stepping clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

func checkDeletable(name, protected string) error {
	if protected != "" && name == protected {
		return apperror.Invalid("document %q is protected", name)
	}
	return nil
}
