// Package export guards the PDF export subprocess with a single-flight flag and
// locates the file it produced.
package export

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"deckeditor/pkg/apperror"
	"deckeditor/pkg/logger"

	"github.com/spf13/afero"
)

// DefaultCandidates are probed in order before falling back to any PDF in the directory.
var DefaultCandidates = []string{"slides-export.pdf", "slides.pdf", "export.pdf"}

const outputExt = ".pdf"

type Status struct {
	InProgress      bool      `json:"in_progress"`
	OutputAvailable bool      `json:"output_available"`
	OutputPath      string    `json:"output_path,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
}

// Coordinator is a narrow single-flight lock: a second Begin while one export runs
// fails with ErrBusy instead of queueing.
type Coordinator struct {
	fs         afero.Fs
	dir        string
	candidates []string

	busy atomic.Bool

	mu         sync.Mutex
	lastErr    error
	finishedAt time.Time
}

func NewCoordinator(fsys afero.Fs, dir string, candidates []string) *Coordinator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Coordinator{fs: fsys, dir: dir, candidates: candidates}
}

// Begin claims the export slot.
func (c *Coordinator) Begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return apperror.ErrBusy
	}
	return nil
}

// Release frees the slot. It is always paired with a successful Begin.
func (c *Coordinator) Release() {
	c.busy.Store(false)
}

// Finish records the outcome of the export and releases the slot.
func (c *Coordinator) Finish(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.finishedAt = time.Now().UTC()
	c.mu.Unlock()
	c.Release()
}

func (c *Coordinator) Status() Status {
	st := Status{InProgress: c.busy.Load()}

	c.mu.Lock()
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	st.FinishedAt = c.finishedAt
	c.mu.Unlock()

	if path, ok := c.locateOutput(); ok {
		st.OutputAvailable = true
		st.OutputPath = path
	}
	return st
}

// locateOutput returns the first existing candidate, else the newest PDF in dir.
func (c *Coordinator) locateOutput() (string, bool) {
	for _, name := range c.candidates {
		path := filepath.Join(c.dir, name)
		info, err := c.fs.Stat(path)
		if err == nil && !info.IsDir() {
			return path, true
		}
	}

	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Sugar.Warnf("Failed to scan export dir %s: %v", c.dir, err)
		}
		return "", false
	}
	var newest fs.FileInfo
	for _, info := range infos {
		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), outputExt) {
			continue
		}
		if newest == nil || info.ModTime().After(newest.ModTime()) {
			newest = info
		}
	}
	if newest == nil {
		return "", false
	}
	return filepath.Join(c.dir, newest.Name()), true
}
