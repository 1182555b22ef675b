package handler

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const statusTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>.store-ok { color: #2e7d32; } .store-failed { color: #c62828; }</style>
</head>
<body>
    <h1>{{.Title}} Response</h1>
    <p><strong>Container ID:</strong> {{.Hostname}}</p>
    <p><strong>Timestamp:</strong> {{.Timestamp}}</p>
    <p><strong>Visit Count:</strong> {{.Visits}}</p>
    <p><strong>Network:</strong> {{.Network}}</p>
    <p class="{{if .Healthy}}store-ok{{else}}store-failed{{end}}"><strong>Store Status:</strong> {{.StoreStatus}}</p>
    <p><strong>Environment:</strong> {{.Environment}}</p>
    <p><strong>Status:</strong> {{.Status}}</p>
</body>
</html>
`

// StatusTemplateName is the name passed to c.Render for the status page.
const StatusTemplateName = "status"

// Renderer implements echo.Renderer on top of html/template.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the page templates. It panics on a malformed template,
// which can only happen if the constant above is broken.
func NewRenderer() *Renderer {
	return &Renderer{
		templates: template.Must(template.New(StatusTemplateName).Parse(statusTemplate)),
	}
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
