package repository

import (
	"context"
	"errors"

	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

// MirroredBackend stores documents in Primary and copies every committed write to
// Mirror, the files the Slidev preview and the PDF export read. Primary stays the
// source of truth: a failed mirror write is logged and the write still succeeds.
type MirroredBackend struct {
	Backend
	Mirror Backend
}

func NewMirroredBackend(primary, mirror Backend) *MirroredBackend {
	return &MirroredBackend{Backend: primary, Mirror: mirror}
}

func (b *MirroredBackend) Write(ctx context.Context, name, content string) error {
	if err := b.Backend.Write(ctx, name, content); err != nil {
		return err
	}
	if err := b.Mirror.Write(ctx, name, content); err != nil {
		logger.Sugar.Errorf("Failed to mirror %s to disk: %v", name, err)
	}
	return nil
}

func (b *MirroredBackend) Delete(ctx context.Context, name string) error {
	if err := b.Backend.Delete(ctx, name); err != nil {
		return err
	}
	if err := b.Mirror.Delete(ctx, name); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		logger.Sugar.Errorf("Failed to remove mirrored %s: %v", name, err)
	}
	return nil
}

// Sync copies the primary's content of name to the mirror when they differ.
// A document missing from the primary is left alone.
func (b *MirroredBackend) Sync(ctx context.Context, name string) error {
	doc, err := b.Backend.Read(ctx, name)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	current, err := b.Mirror.Read(ctx, name)
	if err == nil && current.Content == doc.Content {
		return nil
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return b.Mirror.Write(ctx, name, doc.Content)
}

var _ Backend = (*MirroredBackend)(nil)
