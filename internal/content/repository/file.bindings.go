package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"sort"
	"sync"

	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
)

// FileBindings keeps the presentation -> theme map as a JSON object in one file.
type FileBindings struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewFileBindings(fsys afero.Fs, path string) *FileBindings {
	return &FileBindings{fs: fsys, path: path}
}

func (b *FileBindings) ActiveTheme(_ context.Context, doc string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.load()
	if err != nil {
		return "", err
	}
	return m[doc], nil
}

func (b *FileBindings) SetActiveTheme(_ context.Context, doc, theme string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.load()
	if err != nil {
		return err
	}
	m[doc] = theme
	return b.save(m)
}

func (b *FileBindings) DocumentsUsing(_ context.Context, theme string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.load()
	if err != nil {
		return nil, err
	}
	var docs []string
	for doc, t := range m {
		if t == theme {
			docs = append(docs, doc)
		}
	}
	sort.Strings(docs)
	return docs, nil
}

func (b *FileBindings) Unbind(_ context.Context, doc string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.load()
	if err != nil {
		return err
	}
	if _, ok := m[doc]; !ok {
		return nil
	}
	delete(m, doc)
	return b.save(m)
}

func (b *FileBindings) load() (map[string]string, error) {
	m := map[string]string{}
	data, err := afero.ReadFile(b.fs, b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read theme bindings %s: %v", b.path, err)
		return nil, apperror.IO("read theme bindings", err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Sugar.Errorf("Corrupt theme bindings %s: %v", b.path, err)
		return nil, apperror.IO("decode theme bindings", err)
	}
	return m, nil
}

func (b *FileBindings) save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return apperror.IO("encode theme bindings", err)
	}
	if err := writeFileAtomic(b.fs, b.path, data); err != nil {
		logger.Sugar.Errorf("Failed to write theme bindings %s: %v", b.path, err)
		return apperror.IO("write theme bindings", err)
	}
	return nil
}
