package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/lijid/lijid-dotcom/internal/platform/requestctx"
	"github.com/lijid/lijid-dotcom/internal/reviews"
	"github.com/lijid/lijid-dotcom/internal/seo"
	"go.uber.org/zap"
)

const (
	layoutsDir  = "layouts"
	partialsDir = "partials"
	pagesDir    = "pages"
	baseLayout  = "base"
	tmplExt     = ".tmpl"
)

// Renderer executes html/template pages from a template tree laid out as
// layouts/, partials/ and pages/. Each page is parsed together with every
// layout and partial and executed through the "base" layout.
type Renderer struct {
	fsys fs.FS
	dev  bool

	mu        sync.RWMutex
	pages     map[string]*template.Template
	fragments *template.Template
}

// NewRenderer parses fsys once. In dev mode templates are reparsed on every render.
func NewRenderer(fsys fs.FS, dev bool) (*Renderer, error) {
	r := &Renderer{fsys: fsys, dev: dev}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"stars":  reviews.Stars,
		"jsonld": seo.JSON,
		"year":   func() int { return time.Now().Year() },
	}
}

func (r *Renderer) load() error {
	shared, err := r.globAll(layoutsDir, partialsDir)
	if err != nil {
		return err
	}
	if len(shared) == 0 {
		return errors.New("handlers: no layout templates found")
	}
	root, err := template.New("_root").Funcs(templateFuncs()).ParseFS(r.fsys, shared...)
	if err != nil {
		return fmt.Errorf("handlers: parse layouts: %w", err)
	}

	pageFiles, err := r.globAll(pagesDir)
	if err != nil {
		return err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := root.Clone()
		if err != nil {
			return fmt.Errorf("handlers: clone layouts: %w", err)
		}
		t, err := clone.ParseFS(r.fsys, file)
		if err != nil {
			return fmt.Errorf("handlers: parse page %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), tmplExt)] = t
	}

	r.mu.Lock()
	r.pages = pages
	r.fragments = root
	r.mu.Unlock()
	return nil
}

func (r *Renderer) globAll(dirs ...string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		matches, err := fs.Glob(r.fsys, dir+"/*"+tmplExt)
		if err != nil {
			return nil, fmt.Errorf("handlers: glob %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func (r *Renderer) snapshot() (map[string]*template.Template, *template.Template, error) {
	if r.dev {
		if err := r.load(); err != nil {
			return nil, nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pages, r.fragments, nil
}

// Page renders the named page through the base layout.
func (r *Renderer) Page(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	pages, _, err := r.snapshot()
	if err != nil {
		r.fail(w, req, err)
		return
	}
	t, ok := pages[name]
	if !ok {
		r.fail(w, req, fmt.Errorf("handlers: unknown page %q", name))
		return
	}
	r.execute(w, req, status, t, baseLayout, data)
}

// Fragment renders a named partial without the layout.
func (r *Renderer) Fragment(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	_, fragments, err := r.snapshot()
	if err != nil {
		r.fail(w, req, err)
		return
	}
	r.execute(w, req, status, fragments, name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, req *http.Request, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		r.fail(w, req, fmt.Errorf("handlers: execute %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (r *Renderer) fail(w http.ResponseWriter, req *http.Request, err error) {
	requestctx.Logger(req.Context()).Error("template render failed", zap.Error(err))
	msg := "template error"
	if r.dev {
		msg = err.Error()
	}
	http.Error(w, msg, http.StatusInternalServerError)
}
