package service

import (
	"context"
	"errors"

	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Publish(event model.Event)
}

// ContentService is the content store facade for one namespace (presentations or themes).
// It owns the snapshot-then-write ordering; backends only move bytes.
//
// There is no per-document lock: concurrent saves to one name are serialized only by
// the backend's atomic write, so the last writer wins and history is best effort.
type ContentService struct {
	Backend     repository.Backend
	Ledger      repository.Ledger
	Kind        string
	DefaultName string
	Notifier    Notifier
}

func NewContentService(backend repository.Backend, ledger repository.Ledger, kind, defaultName string) *ContentService {
	return &ContentService{Backend: backend, Ledger: ledger, Kind: kind, DefaultName: defaultName}
}

// ValidateName rejects names that cannot be used as file names or keys.
func ValidateName(name string) error {
	if !model.ValidName(name) {
		return apperror.Invalid("invalid name %q", name)
	}
	return nil
}

func (s *ContentService) Get(ctx context.Context, name string) (model.Document, error) {
	if err := ValidateName(name); err != nil {
		return model.Document{}, err
	}
	return s.Backend.Read(ctx, name)
}

// Save writes content, snapshotting the previous content first when the document
// exists and the content changes. A failed snapshot aborts the save; a successful
// snapshot is kept even if the write then fails.
func (s *ContentService) Save(ctx context.Context, name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	current, err := s.Backend.Read(ctx, name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		// Creation: nothing to snapshot.
	case err != nil:
		return err
	case current.Content != content:
		if err := s.Ledger.Snapshot(ctx, name, current.Content); err != nil {
			return err
		}
	}

	if err := s.Backend.Write(ctx, name, content); err != nil {
		return err
	}
	logger.Sugar.Infof("Saved %s %s (%d bytes)", s.Kind, name, len(content))
	s.publish(model.Event{Type: model.EventSaved, Kind: s.Kind, Name: name})
	return nil
}

// Restore makes the snapshot at position the current content. The current content is
// snapshotted first, so a restore can itself be undone with Restore(name, 0).
func (s *ContentService) Restore(ctx context.Context, name string, position int) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	// Fetch before snapshotting: the snapshot shifts every position by one.
	snap, err := s.Ledger.Fetch(ctx, name, position)
	if err != nil {
		return err
	}

	current, err := s.Backend.Read(ctx, name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return err
	case current.Content != snap.Content:
		if err := s.Ledger.Snapshot(ctx, name, current.Content); err != nil {
			return err
		}
	}

	if err := s.Backend.Write(ctx, name, snap.Content); err != nil {
		return err
	}
	logger.Sugar.Infof("Restored %s %s to history position %d", s.Kind, name, position)
	s.publish(model.Event{Type: model.EventRestored, Kind: s.Kind, Name: name, Position: position})
	return nil
}

func (s *ContentService) List(ctx context.Context) ([]model.Summary, error) {
	return s.Backend.List(ctx)
}

// Delete removes a document and all of its snapshots. The default document is protected.
func (s *ContentService) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if name == s.DefaultName {
		return apperror.Invalid("%s %q is protected", s.Kind, name)
	}
	if _, err := s.Backend.Read(ctx, name); err != nil {
		return err
	}

	// History rows reference the document, so they go first.
	if err := s.Ledger.Purge(ctx, name); err != nil {
		return err
	}
	if err := s.Backend.Delete(ctx, name); err != nil {
		return err
	}
	logger.Sugar.Infof("Deleted %s %s", s.Kind, name)
	s.publish(model.Event{Type: model.EventDeleted, Kind: s.Kind, Name: name})
	return nil
}

func (s *ContentService) History(ctx context.Context, name string) ([]model.HistoryEntry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return s.Ledger.List(ctx, name)
}

// Version returns the snapshot at position without changing anything.
func (s *ContentService) Version(ctx context.Context, name string, position int) (model.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return model.Snapshot{}, err
	}
	return s.Ledger.Fetch(ctx, name, position)
}

func (s *ContentService) publish(event model.Event) {
	if s.Notifier != nil {
		s.Notifier.Publish(event)
	}
}
