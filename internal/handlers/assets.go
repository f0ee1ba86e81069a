package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// AssetsPrefix is the URL prefix of static files under public/assets.
const AssetsPrefix = "/assets"

const assetsCacheControl = "public, max-age=604800, stale-while-revalidate=86400"

// Assets serves static files with Cache-Control, Vary and weak ETag handling.
type Assets struct {
	files http.Handler
	etags map[string]string
}

// NewAssets precomputes ETags for every file in fsys. fsys is rooted at the
// assets directory, so /assets/site.css maps to site.css.
func NewAssets(fsys fs.FS) *Assets {
	etags := map[string]string{}
	_ = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil
		}
		sum := sha256.Sum256(raw)
		etags["/"+name] = `W/"` + hex.EncodeToString(sum[:]) + `"`
		return nil
	})
	return &Assets{
		files: http.StripPrefix(AssetsPrefix, http.FileServer(http.FS(fsys))),
		etags: etags,
	}
}

// Routes mounts the file server under AssetsPrefix.
func (a *Assets) Routes(r chi.Router) {
	r.Get(AssetsPrefix+"/*", a.ServeHTTP)
}

func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("Cache-Control", assetsCacheControl)
	if et := a.etags[strings.TrimPrefix(r.URL.Path, AssetsPrefix)]; et != "" {
		w.Header().Set("ETag", et)
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == et {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	a.files.ServeHTTP(w, r)
}
