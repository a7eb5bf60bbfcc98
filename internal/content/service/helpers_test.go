package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"deckeditor/config/database"
	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T, limit int) (repository.Backend, repository.Ledger)

// storageModes runs the same behaviour against the filesystem and the SQL adapters.
var storageModes = map[string]storeFactory{
	"filesystem": func(t *testing.T, limit int) (repository.Backend, repository.Ledger) {
		fsys := afero.NewMemMapFs()
		backend := repository.NewFileBackend(fsys, repository.FileBackendConfig{
			Ext:         ".md",
			DefaultName: "slides",
			DefaultPath: "/app/presentation/slides.md",
		})
		ledger := repository.NewFileLedger(fsys, "/app/presentation/.history", ".md", limit, nil)
		return backend, ledger
	},
	"sqlite": func(t *testing.T, limit int) (repository.Backend, repository.Ledger) {
		db := newSQLiteDB(t)
		backend := repository.NewSQLBackend(db, database.SQLite, database.PresentationsTable, "slides", nil)
		ledger := repository.NewSQLLedger(db, database.SQLite, database.PresentationHistoryTable, limit, nil)
		return backend, ledger
	},
}

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := database.Connect(ctx, "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.EnsureSchema(ctx, db, dialect))
	return db
}

func historyContents(t *testing.T, s *ContentService, name string) []string {
	t.Helper()
	ctx := context.Background()
	entries, err := s.History(ctx, name)
	require.NoError(t, err)
	contents := make([]string, 0, len(entries))
	for _, e := range entries {
		snap, err := s.Version(ctx, name, e.Position)
		require.NoError(t, err)
		contents = append(contents, snap.Content)
	}
	return contents
}

func currentContent(t *testing.T, s *ContentService, name string) string {
	t.Helper()
	doc, err := s.Get(context.Background(), name)
	require.NoError(t, err)
	return doc.Content
}

// recordingNotifier collects published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *recordingNotifier) Publish(event model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []model.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Event(nil), n.events...)
}
