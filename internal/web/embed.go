// Package web holds the HTML templates of the session pages.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templates embed.FS

// NewEngine returns the view engine over the embedded templates. Pages are
// addressed by their path without extension, e.g. "index" or "layouts/main".
func NewEngine() (*html.Engine, error) {
	root, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, err
	}

	return html.NewFileSystem(http.FS(root), ".html"), nil
}
