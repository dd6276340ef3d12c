package http

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type frontendMode int

const (
	modeTemplates frontendMode = iota
	modeDistBundle
	modeBuildBundle
)

// frontend fixes the serving mode chosen at startup: a prebuilt SPA bundle
// when one exists, otherwise server-rendered templates.
type frontend struct {
	mode      frontendMode
	staticDir string
	files     http.Handler
	tmpl      *template.Template
	tmplPath  string
	debug     bool
}

type indexData struct {
	Cols   []string
	Result string
	Notice string
}

// newFrontend probes the filesystem for build artifacts. Priority order:
// Static/dist, then Static/build, then template mode. The choice cannot
// change without a restart.
func newFrontend(baseDir string) (*frontend, error) {
	return newFrontendDebug(baseDir, false)
}

// newFrontendDebug additionally enables template auto-reload. Debug must stay
// off in any non-development deployment.
func newFrontendDebug(baseDir string, debug bool) (*frontend, error) {
	distDir := filepath.Join(baseDir, "Static", "dist")
	buildDir := filepath.Join(baseDir, "Static", "build")

	front := &frontend{}
	switch {
	case fileExists(filepath.Join(distDir, "index.html")):
		httpLogger.Info("frontend artifacts detected, SPA mode", zap.String("dir", distDir))
		front.mode = modeDistBundle
		front.staticDir = distDir
	case fileExists(filepath.Join(buildDir, "index.html")):
		httpLogger.Info("frontend artifacts detected, SPA mode", zap.String("dir", buildDir))
		front.mode = modeBuildBundle
		front.staticDir = buildDir
	default:
		httpLogger.Info("no compiled SPA found, falling back to template mode")
		front.mode = modeTemplates
		front.staticDir = filepath.Join(baseDir, "Static")
	}

	if front.mode != modeTemplates {
		front.files = http.FileServer(http.Dir(front.staticDir))
	}

	front.debug = debug
	tmplPath := filepath.Join(baseDir, "templates", "index.html")
	if fileExists(tmplPath) {
		tmpl, err := template.ParseFiles(tmplPath)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", tmplPath, err)
		}
		front.tmpl = tmpl
		front.tmplPath = tmplPath
	} else if front.mode == modeTemplates {
		return nil, fmt.Errorf("template mode requires %s", tmplPath)
	}

	return front, nil
}

// handleIndex serves the landing page. SPA bundles are served verbatim with
// no server-side data injection; template mode renders the form from the
// known feature list.
func (f *frontend) handleIndex(w http.ResponseWriter, r *http.Request) {
	if f.mode != modeTemplates {
		if r.URL.Path == "/" {
			http.ServeFile(w, r, filepath.Join(f.staticDir, "index.html"))
			return
		}
		f.files.ServeHTTP(w, r)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f.render(w, indexData{
		Cols:   knownFeatures(),
		Notice: r.URL.Query().Get("notice"),
	})
}

func (f *frontend) render(w http.ResponseWriter, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if f.debug && f.tmplPath != "" {
		if tmpl, err := template.ParseFiles(f.tmplPath); err == nil {
			f.tmpl = tmpl
		}
	}
	if f.tmpl == nil {
		// SPA-only deploy with no template on disk; still answer the
		// prediction POST with a readable page.
		fmt.Fprintf(w, "<!DOCTYPE html><html><body><p>%s</p></body></html>",
			template.HTMLEscapeString(data.Result))
		return
	}
	if err := f.tmpl.Execute(w, data); err != nil {
		httpLogger.Error("template render failed", zap.Error(err))
	}
}

func knownFeatures() []string {
	if service == nil {
		return nil
	}
	return service.Features()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
