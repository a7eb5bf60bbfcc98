package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deckeditor/internal/content/model"
	"deckeditor/internal/content/repository"
	"deckeditor/internal/content/service"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	slides *ContentHandler
	themes *ThemeHandler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fsys := afero.NewMemMapFs()
	docs := repository.NewFileBackend(fsys, repository.FileBackendConfig{
		Ext: ".md", DefaultName: "slides", DefaultPath: "/app/presentation/slides.md",
	})
	presentations := service.NewContentService(docs,
		repository.NewFileLedger(fsys, "/app/presentation/.history", ".md", 10, nil), model.KindPresentation, "slides")
	themes := service.NewThemeService(
		service.NewContentService(
			repository.NewFileBackend(fsys, repository.FileBackendConfig{Dir: "/app/presentation/themes", Ext: ".css", DefaultName: "default"}),
			repository.NewFileLedger(fsys, "/app/presentation/themes/.history", ".css", 10, nil),
			model.KindTheme, "default"),
		repository.NewFileBindings(fsys, "/app/presentation/themes/.active-themes.json"),
		docs,
	)
	return fixture{
		slides: NewContentHandler(presentations, "slides"),
		themes: NewThemeHandler(themes, "slides"),
	}
}

func do(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestSlidesSaveAndGet(t *testing.T) {
	f := newFixture(t)

	rec := do(f.slides.Document, http.MethodGet, "/api/slides", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.slides.Document, http.MethodPost, "/api/slides", `{"content":"# Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(f.slides.Document, http.MethodGet, "/api/slides", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "slides", doc.Name)
	assert.Equal(t, "# Hello", doc.Content)

	rec = do(f.slides.Document, http.MethodPost, "/api/slides?name=appendix", `{"content":"# Appendix"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(f.slides.List, http.MethodGet, "/api/slides/list", "")
	var list []model.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestSlidesSaveRejectsNonStringContent(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{"content":42}`, `{"content":null}`, `{}`, `{"content":["a"]}`} {
		rec := do(f.slides.Document, http.MethodPost, "/api/slides", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec := do(f.slides.Document, http.MethodPost, "/api/slides", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.slides.Document, http.MethodPost, "/api/slides?name=../x", `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlidesHistoryAndRestore(t *testing.T) {
	f := newFixture(t)
	for _, content := range []string{"A", "B", "C"} {
		rec := do(f.slides.Document, http.MethodPost, "/api/slides", `{"content":"`+content+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(f.slides.History, http.MethodGet, "/api/slides/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []model.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Latest backup", entries[0].Label)

	rec = do(f.slides.Version, http.MethodGet, "/api/slides/history/version?position=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "A", snap.Content)

	rec = do(f.slides.Version, http.MethodGet, "/api/slides/history/version?position=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(f.slides.Version, http.MethodGet, "/api/slides/history/version?position=9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.slides.Restore, http.MethodPost, "/api/slides/restore", `{"position":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "A", doc.Content)

	rec = do(f.slides.Restore, http.MethodPost, "/api/slides/restore", `{"name":"slides"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "position is required")
}

func TestSlidesDelete(t *testing.T) {
	f := newFixture(t)
	do(f.slides.Document, http.MethodPost, "/api/slides", `{"content":"main"}`)
	do(f.slides.Document, http.MethodPost, "/api/slides?name=draft", `{"content":"draft"}`)

	rec := do(f.slides.Document, http.MethodDelete, "/api/slides", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "name is required for delete")

	rec = do(f.slides.Document, http.MethodDelete, "/api/slides?name=slides", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "default document is protected")

	rec = do(f.slides.Document, http.MethodDelete, "/api/slides?name=draft", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.slides.Document, http.MethodDelete, "/api/slides?name=draft", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.slides.Document, http.MethodPatch, "/api/slides", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestActiveThemeEndpoint(t *testing.T) {
	f := newFixture(t)
	do(f.slides.Document, http.MethodPost, "/api/slides", `{"content":"main"}`)
	rec := do(f.themes.Document, http.MethodPost, "/api/themes?name=dark", `{"content":":root{}"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.themes.Active, http.MethodGet, "/api/themes/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ActiveThemeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.ActiveThemeResponse{Document: "slides", Theme: "default"}, resp)

	rec = do(f.themes.Active, http.MethodPut, "/api/themes/active?doc=slides", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dark", resp.Theme)

	rec = do(f.themes.Active, http.MethodPut, "/api/themes/active", `{"theme":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Bound themes cannot be deleted.
	rec = do(f.themes.Document, http.MethodDelete, "/api/themes?name=dark", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := f.themes.Themes.Get(context.Background(), "dark")
	assert.NoError(t, err)
}
