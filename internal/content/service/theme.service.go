package service

import (
	"context"
	"errors"
	"strings"

	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"
)

// ThemeService is the theme content store plus the presentation -> active theme bindings.
type ThemeService struct {
	*ContentService
	Bindings      repository.ThemeBindings
	Presentations repository.Backend
}

func NewThemeService(themes *ContentService, bindings repository.ThemeBindings, presentations repository.Backend) *ThemeService {
	return &ThemeService{ContentService: themes, Bindings: bindings, Presentations: presentations}
}

// ActiveTheme returns the theme bound to doc, or the default theme when none is bound.
func (s *ThemeService) ActiveTheme(ctx context.Context, doc string) (string, error) {
	if err := ValidateName(doc); err != nil {
		return "", err
	}
	if _, err := s.Presentations.Read(ctx, doc); err != nil {
		return "", err
	}
	theme, err := s.Bindings.ActiveTheme(ctx, doc)
	if err != nil {
		return "", err
	}
	if theme == "" {
		return s.DefaultName, nil
	}
	return theme, nil
}

// SetActiveTheme binds theme to doc. Both must exist.
func (s *ThemeService) SetActiveTheme(ctx context.Context, doc, theme string) error {
	if err := ValidateName(doc); err != nil {
		return err
	}
	if _, err := s.Get(ctx, theme); err != nil {
		return err
	}
	if _, err := s.Presentations.Read(ctx, doc); err != nil {
		return err
	}
	if err := s.Bindings.SetActiveTheme(ctx, doc, theme); err != nil {
		return err
	}
	logger.Sugar.Infof("Presentation %s now uses theme %s", doc, theme)
	s.publish(model.Event{Type: model.EventThemeChanged, Kind: model.KindPresentation, Name: doc, Theme: theme})
	return nil
}

// Delete refuses to remove a theme that a presentation still uses.
// Bindings left behind by deleted presentations are dropped on the way.
func (s *ThemeService) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	docs, err := s.Bindings.DocumentsUsing(ctx, name)
	if err != nil {
		return err
	}
	var inUse []string
	for _, doc := range docs {
		_, err := s.Presentations.Read(ctx, doc)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			if err := s.Bindings.Unbind(ctx, doc); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			inUse = append(inUse, doc)
		}
	}
	if len(inUse) > 0 {
		return apperror.Invalid("theme %q is used by %s", name, strings.Join(inUse, ", "))
	}
	return s.ContentService.Delete(ctx, name)
}
