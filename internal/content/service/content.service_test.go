package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"
	"deckeditor/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRestoreScenario(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 2)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			require.NoError(t, s.Save(ctx, "deck", "A"))
			assert.Equal(t, "A", currentContent(t, s, "deck"))
			assert.Empty(t, historyContents(t, s, "deck"))

			require.NoError(t, s.Save(ctx, "deck", "B"))
			assert.Equal(t, "B", currentContent(t, s, "deck"))
			assert.Equal(t, []string{"A"}, historyContents(t, s, "deck"))

			require.NoError(t, s.Save(ctx, "deck", "C"))
			assert.Equal(t, []string{"B", "A"}, historyContents(t, s, "deck"))

			require.NoError(t, s.Restore(ctx, "deck", 1))
			assert.Equal(t, "A", currentContent(t, s, "deck"))
			assert.Equal(t, []string{"C", "B"}, historyContents(t, s, "deck"))
		})
	}
}

func TestGetReturnsLatestSave(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 10)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			for i := 0; i < 25; i++ {
				content := fmt.Sprintf("# Slide %d\n\n%s", i, strings.Repeat("-", i))
				require.NoError(t, s.Save(ctx, "talk", content))
				assert.Equal(t, content, currentContent(t, s, "talk"))
			}
		})
	}
}

func TestHistoryIsBounded(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 3)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			previous := ""
			for i := 0; i < 8; i++ {
				content := fmt.Sprintf("v%d", i)
				require.NoError(t, s.Save(ctx, "deck", content))

				history := historyContents(t, s, "deck")
				assert.LessOrEqual(t, len(history), 3)
				if i > 0 {
					require.NotEmpty(t, history)
					assert.Equal(t, previous, history[0])
				}
				previous = content
			}
		})
	}
}

func TestRestoreUndoesRestore(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 10)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			require.NoError(t, s.Save(ctx, "deck", "A"))
			require.NoError(t, s.Save(ctx, "deck", "B"))

			require.NoError(t, s.Restore(ctx, "deck", 0))
			assert.Equal(t, "A", currentContent(t, s, "deck"))

			require.NoError(t, s.Restore(ctx, "deck", 0))
			assert.Equal(t, "B", currentContent(t, s, "deck"))
		})
	}
}

func TestSaveUnchangedContentSkipsSnapshot(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")

	require.NoError(t, s.Save(ctx, "deck", "A"))
	require.NoError(t, s.Save(ctx, "deck", "A"))
	require.NoError(t, s.Save(ctx, "deck", "A"))
	assert.Empty(t, historyContents(t, s, "deck"))
}

func TestRestoreUnknownPosition(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")

	require.NoError(t, s.Save(ctx, "deck", "A"))
	assert.ErrorIs(t, s.Restore(ctx, "deck", 0), apperror.ErrNotFound)
	assert.ErrorIs(t, s.Restore(ctx, "missing", 0), apperror.ErrNotFound)
	assert.Equal(t, "A", currentContent(t, s, "deck"))
}

func TestDeleteProtectedDefault(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 10)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			// Protected whether or not it exists yet.
			assert.ErrorIs(t, s.Delete(ctx, "slides"), apperror.ErrInvalidOperation)
			require.NoError(t, s.Save(ctx, "slides", "intro"))
			assert.ErrorIs(t, s.Delete(ctx, "slides"), apperror.ErrInvalidOperation)
			assert.Equal(t, "intro", currentContent(t, s, "slides"))
		})
	}
}

func TestDeleteRemovesHistory(t *testing.T) {
	for mode, newStores := range storageModes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			backend, ledger := newStores(t, 10)
			s := NewContentService(backend, ledger, model.KindPresentation, "slides")

			require.NoError(t, s.Save(ctx, "deck", "A"))
			require.NoError(t, s.Save(ctx, "deck", "B"))
			require.NoError(t, s.Delete(ctx, "deck"))

			_, err := s.Get(ctx, "deck")
			assert.ErrorIs(t, err, apperror.ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "deck"), apperror.ErrNotFound)

			// A document recreated under the same name starts with a clean history.
			require.NoError(t, s.Save(ctx, "deck", "fresh"))
			assert.Empty(t, historyContents(t, s, "deck"))
		})
	}
}

func TestListSummaries(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")

	require.NoError(t, s.Save(ctx, "slides", "s"))
	require.NoError(t, s.Save(ctx, "appendix", "a"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "appendix", list[0].Name)
	assert.True(t, list[1].IsDefault)
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")

	for _, name := range []string{"", "../etc/passwd", "a/b", ".hidden", "-dash", "with space", strings.Repeat("x", 65)} {
		assert.ErrorIs(t, s.Save(ctx, name, "x"), apperror.ErrInvalidOperation, name)
		_, err := s.Get(ctx, name)
		assert.ErrorIs(t, err, apperror.ErrInvalidOperation, name)
	}
	assert.NoError(t, ValidateName("talk_2026-v2"))
}

func TestMutationsArePublished(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")
	notifier := &recordingNotifier{}
	s.Notifier = notifier

	require.NoError(t, s.Save(ctx, "deck", "A"))
	require.NoError(t, s.Save(ctx, "deck", "B"))
	require.NoError(t, s.Restore(ctx, "deck", 0))
	require.NoError(t, s.Delete(ctx, "deck"))
	assert.Error(t, s.Delete(ctx, "deck"))

	events := notifier.Events()
	require.Len(t, events, 4)
	assert.Equal(t, model.EventSaved, events[0].Type)
	assert.Equal(t, model.EventRestored, events[2].Type)
	assert.Equal(t, 0, events[2].Position)
	assert.Equal(t, model.EventDeleted, events[3].Type)
	for _, e := range events {
		assert.Equal(t, model.KindPresentation, e.Kind)
		assert.Equal(t, "deck", e.Name)
	}
}

// failingLedger refuses every snapshot.
type failingLedger struct {
	repository.Ledger
}

func (failingLedger) Snapshot(context.Context, string, string) error {
	return apperror.IO("snapshot", errors.New("disk full"))
}

func TestSaveAbortsWhenSnapshotFails(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")
	require.NoError(t, s.Save(ctx, "deck", "A"))

	s.Ledger = failingLedger{Ledger: ledger}
	err := s.Save(ctx, "deck", "B")
	assert.ErrorIs(t, err, apperror.ErrIOFailure)
	assert.Equal(t, "A", currentContent(t, s, "deck"), "content is unchanged when its snapshot could not be taken")
}

// failingBackend reads fine but cannot write.
type failingBackend struct {
	repository.Backend
}

func (failingBackend) Write(context.Context, string, string) error {
	return apperror.IO("write", errors.New("read-only file system"))
}

func TestSaveKeepsSnapshotWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	backend, ledger := storageModes["filesystem"](t, 10)
	s := NewContentService(backend, ledger, model.KindPresentation, "slides")
	require.NoError(t, s.Save(ctx, "deck", "A"))

	s.Backend = failingBackend{Backend: backend}
	assert.ErrorIs(t, s.Save(ctx, "deck", "B"), apperror.ErrIOFailure)

	s.Backend = backend
	assert.Equal(t, "A", currentContent(t, s, "deck"))
	assert.Equal(t, []string{"A"}, historyContents(t, s, "deck"))
}
