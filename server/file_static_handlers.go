package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

var staticFS = mustSub(staticFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("embedded " + dir + " directory missing: " + err.Error())
	}
	return sub
}

// StaticFileHandler serves embedded stylesheets (GET /css/{file})
func (s *Server) StaticFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || !fs.ValidPath(name) {
			http.NotFound(w, r)
			return
		}
		if _, err := fs.Stat(staticFS, name); err != nil {
			logError(r.Method, r.URL.Path, err.Error())
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, staticFS, name)
	}
}
