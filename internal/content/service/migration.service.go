package service

import (
	"context"
	"errors"

	"deckeditor/internal/content/repository"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

// Migrate copies document name from source (the filesystem) into target (the database)
// when target does not have it yet. It never overwrites, so running it on every
// startup is safe. It reports whether a copy happened.
func Migrate(ctx context.Context, target, source repository.Backend, name string) (bool, error) {
	_, err := target.Read(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return false, err
	}

	doc, err := source.Read(ctx, name)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := target.Write(ctx, name, doc.Content); err != nil {
		return false, err
	}
	logger.Sugar.Infof("Migrated %s from disk into the database (%d bytes)", name, len(doc.Content))
	return true, nil
}
