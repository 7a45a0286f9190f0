package web

import (
	"embed"
	"fmt"
	"html/template"

	"gatehouse/cmd/internal/auth/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is the uniform model handed to every page template.
type pageData struct {
	Session *session.State

	// Error is a user-facing message rendered by the login form.
	Error string
	// Username echoes the submitted username back into the form.
	Username string
}

// parseTemplates builds one template set per page, each sharing the layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{"login.html", "dashboard.html", "settings.html"}

	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", page, err)
		}
		set[page] = t
	}
	return set, nil
}
