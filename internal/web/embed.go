// Package web provides the embedded download page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// Template names understood by the Renderer.
const (
	TemplatePage     = "page"
	TemplateDetail   = "detail"
	TemplateNotFound = "notfound"
)

// Renderer renders the embedded html/template set for echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// RegisterStaticRoutes serves the embedded assets under /static.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))
	return nil
}
