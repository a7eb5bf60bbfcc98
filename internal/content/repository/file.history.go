package repository

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
)

// FileLedger stores snapshots as <dir>/<doc>-<stamp><ext>. Recency is the
// lexicographic order of file names, which FormatStamp keeps chronological.
type FileLedger struct {
	fs    afero.Fs
	dir   string
	ext   string
	limit int
	now   Clock

	// mu makes stamp allocation and trimming one step; it is not a document lock.
	mu sync.Mutex
}

func NewFileLedger(fsys afero.Fs, dir, ext string, limit int, clock Clock) *FileLedger {
	return &FileLedger{
		fs:    fsys,
		dir:   dir,
		ext:   ext,
		limit: limitOrDefault(limit),
		now:   clockOrDefault(clock),
	}
}

type historyFile struct {
	file      string
	createdAt time.Time
	size      int64
}

func (l *FileLedger) Snapshot(_ context.Context, name, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := l.files(name)
	if err != nil {
		return err
	}

	// A stamp must sort after every existing one, so equal clock readings keep insertion order.
	at := l.now().UTC()
	if len(files) > 0 && !at.After(files[0].createdAt) {
		at = files[0].createdAt.Add(time.Nanosecond)
	}
	file := name + "-" + FormatStamp(at) + l.ext
	if err := writeFileAtomic(l.fs, filepath.Join(l.dir, file), []byte(content)); err != nil {
		logger.Sugar.Errorf("Failed to snapshot %s: %v", name, err)
		return apperror.IO("snapshot "+name, err)
	}

	files = append([]historyFile{{file: file, createdAt: at}}, files...)
	if len(files) <= l.limit {
		return nil
	}
	for _, f := range files[l.limit:] {
		if err := l.fs.Remove(filepath.Join(l.dir, f.file)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Sugar.Errorf("Failed to trim snapshot %s: %v", f.file, err)
			return apperror.IO("trim "+name, err)
		}
	}
	return nil
}

func (l *FileLedger) List(_ context.Context, name string) ([]model.HistoryEntry, error) {
	files, err := l.files(name)
	if err != nil {
		return nil, err
	}
	if len(files) > l.limit {
		files = files[:l.limit]
	}
	entries := make([]model.HistoryEntry, 0, len(files))
	for i, f := range files {
		entries = append(entries, model.HistoryEntry{
			Position:  i,
			ID:        f.file,
			CreatedAt: f.createdAt,
			Label:     model.HistoryLabel(i),
			Size:      f.size,
		})
	}
	return entries, nil
}

func (l *FileLedger) Fetch(_ context.Context, name string, position int) (model.Snapshot, error) {
	files, err := l.files(name)
	if err != nil {
		return model.Snapshot{}, err
	}
	if position < 0 || position >= len(files) || position >= l.limit {
		return model.Snapshot{}, apperror.NotFound("history position %d of %q", position, name)
	}
	f := files[position]
	data, err := afero.ReadFile(l.fs, filepath.Join(l.dir, f.file))
	if err != nil {
		logger.Sugar.Errorf("Failed to read snapshot %s: %v", f.file, err)
		return model.Snapshot{}, apperror.IO("fetch "+name, err)
	}
	return model.Snapshot{ID: f.file, Name: name, Content: string(data), CreatedAt: f.createdAt}, nil
}

func (l *FileLedger) Purge(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := l.files(name)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := l.fs.Remove(filepath.Join(l.dir, f.file)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Sugar.Errorf("Failed to purge snapshot %s: %v", f.file, err)
			return apperror.IO("purge "+name, err)
		}
	}
	return nil
}

// files returns the snapshots of name, newest first. Files of documents whose
// name merely starts with name (e.g. "deck-2" for "deck") fail the stamp parse.
func (l *FileLedger) files(name string) ([]historyFile, error) {
	infos, err := afero.ReadDir(l.fs, l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list history dir %s: %v", l.dir, err)
		return nil, apperror.IO("history "+name, err)
	}

	prefix := name + "-"
	var files []historyFile
	for _, info := range infos {
		fn := info.Name()
		if info.IsDir() || !strings.HasPrefix(fn, prefix) || !strings.HasSuffix(fn, l.ext) {
			continue
		}
		createdAt, err := ParseStamp(strings.TrimSuffix(strings.TrimPrefix(fn, prefix), l.ext))
		if err != nil {
			continue
		}
		files = append(files, historyFile{file: fn, createdAt: createdAt, size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].file > files[j].file })
	return files, nil
}
