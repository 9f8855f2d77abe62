package frontend

import (
	"embed"
	"net/http"
)

//go:embed static/*
var staticFiles embed.FS

// Asset is one fixed payload served with a fixed content type.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
}

// Assets returns the dashboard page, script and stylesheet keyed by the URL
// path they are served under.
func Assets() []Asset {
	return []Asset{
		{Path: "/", ContentType: "text/html; charset=utf-8", Body: mustRead("static/index.html")},
		{Path: "/index.mjs", ContentType: "application/javascript;charset=utf-8", Body: mustRead("static/index.mjs")},
		{Path: "/index.css", ContentType: "text/css;charset=utf-8", Body: mustRead("static/index.css")},
	}
}

func mustRead(name string) []byte {
	data, err := staticFiles.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

// ServeHTTP writes the asset verbatim. Only GET and HEAD are accepted.
func (a Asset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(a.Body)
}
