package repository

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
)

type FileBackendConfig struct {
	// Dir holds one file per document. Defaults to the directory of DefaultPath.
	Dir string
	// Ext is appended to document names, e.g. ".md".
	Ext string
	// DefaultName is the protected document.
	DefaultName string
	// DefaultPath, when set, is the literal file the default document is served from.
	DefaultPath string
}

// FileBackend stores each document as a file under a directory.
type FileBackend struct {
	fs  afero.Fs
	cfg FileBackendConfig
}

func NewFileBackend(fsys afero.Fs, cfg FileBackendConfig) *FileBackend {
	if cfg.Dir == "" && cfg.DefaultPath != "" {
		cfg.Dir = filepath.Dir(cfg.DefaultPath)
	}
	return &FileBackend{fs: fsys, cfg: cfg}
}

// Dir returns the directory documents are stored in.
func (b *FileBackend) Dir() string { return b.cfg.Dir }

// PathFor returns the file that holds a document's current content.
func (b *FileBackend) PathFor(name string) string {
	if name == b.cfg.DefaultName && b.cfg.DefaultPath != "" {
		return b.cfg.DefaultPath
	}
	return filepath.Join(b.cfg.Dir, name+b.cfg.Ext)
}

func (b *FileBackend) Read(_ context.Context, name string) (model.Document, error) {
	path := b.PathFor(name)
	data, err := afero.ReadFile(b.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Document{}, apperror.NotFound("document %q", name)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read %s: %v", path, err)
		return model.Document{}, apperror.IO("read "+name, err)
	}

	doc := model.Document{Name: name, Content: string(data)}
	if info, err := b.fs.Stat(path); err == nil {
		doc.UpdatedAt = info.ModTime().UTC()
	}
	return doc, nil
}

func (b *FileBackend) Write(_ context.Context, name, content string) error {
	path := b.PathFor(name)
	if err := writeFileAtomic(b.fs, path, []byte(content)); err != nil {
		logger.Sugar.Errorf("Failed to write %s: %v", path, err)
		return apperror.IO("write "+name, err)
	}
	return nil
}

func (b *FileBackend) List(_ context.Context) ([]model.Summary, error) {
	infos, err := afero.ReadDir(b.fs, b.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Summary{}, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list %s: %v", b.cfg.Dir, err)
		return nil, apperror.IO("list", err)
	}

	defaultBase := ""
	if b.cfg.DefaultPath != "" && filepath.Dir(b.cfg.DefaultPath) == filepath.Clean(b.cfg.Dir) {
		defaultBase = filepath.Base(b.cfg.DefaultPath)
	}

	summaries := make([]model.Summary, 0, len(infos))
	for _, info := range infos {
		fn := info.Name()
		if info.IsDir() || strings.HasPrefix(fn, ".") {
			continue
		}
		var name string
		switch {
		case fn == defaultBase:
			name = b.cfg.DefaultName
		case b.cfg.Ext != "" && strings.HasSuffix(fn, b.cfg.Ext):
			name = strings.TrimSuffix(fn, b.cfg.Ext)
		default:
			continue
		}
		summaries = append(summaries, model.Summary{
			Name:      name,
			UpdatedAt: info.ModTime().UTC(),
			Size:      info.Size(),
			IsDefault: name == b.cfg.DefaultName,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (b *FileBackend) Delete(_ context.Context, name string) error {
	if err := checkDeletable(name, b.cfg.DefaultName); err != nil {
		return err
	}
	path := b.PathFor(name)
	err := b.fs.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperror.NotFound("document %q", name)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to delete %s: %v", path, err)
		return apperror.IO("delete "+name, err)
	}
	return nil
}
