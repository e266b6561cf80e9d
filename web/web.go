// Package web embeds the HTML templates served by the analyzer.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded templates
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded templates: %w", err)
	}
	return tmpl, nil
}

// TemplatesFromDir parses templates from dir on disk, for editing pages without a rebuild
func TemplatesFromDir(dir string) (*template.Template, error) {
	tmpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates in %s: %w", dir, err)
	}
	return tmpl, nil
}
