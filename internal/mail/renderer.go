package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// Renderer executes a named template inside the shared layout
type Renderer struct {
	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewRenderer creates a renderer over the embedded templates
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[string]*template.Template)}
}

// Render returns the HTML body for msg
func (r *Renderer) Render(msg Message) (string, error) {
	if msg.Template == "" {
		return "<p>" + template.HTMLEscapeString(msg.Text) + "</p>", nil
	}

	tmpl, err := r.lookup(msg.Template)
	if err != nil {
		return "", err
	}

	data := map[string]any{"Subject": msg.Subject}
	for k, v := range msg.Context {
		data[k] = v
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", msg.Template, err)
	}
	return body.String(), nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[name]; ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(templateFS, layoutTemplate, "templates/"+name+".html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
	}
	r.cache[name] = tmpl
	return tmpl, nil
}
