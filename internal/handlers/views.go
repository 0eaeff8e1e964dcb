package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/security"
)

// MetaRefresh sends the browser to URL after Seconds
type MetaRefresh struct {
	Seconds int
	URL     string
}

// Layout is what base.tmpl needs on every page
type Layout struct {
	Title     string
	Identity  *models.Identity
	Notices   []notify.Notice
	CSRFToken string
	PageID    string
	Refresh   *MetaRefresh
}

// Views renders templates and carries flash messages across redirects
type Views struct {
	templates *template.Template
	flasher   *notify.Flasher
	csrf      *security.CSRFGenerator
	logger    logging.Logger
}

func NewViews(templates *template.Template, flasher *notify.Flasher, csrf *security.CSRFGenerator, logger logging.Logger) *Views {
	return &Views{templates: templates, flasher: flasher, csrf: csrf, logger: logger}
}

// TemplateFuncs are the helpers available to every template
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"favicon": func() string {
			return FaviconPath
		},
	}
}

// Layout builds the shared page data, consuming queued flash messages
func (v *Views) Layout(r *http.Request, title string, identity *models.Identity, pageID string) Layout {
	sid := SessionIDFromContext(r.Context())
	layout := Layout{
		Title:    title + " - EcoQuest",
		Identity: identity,
		PageID:   pageID,
	}
	if sid == "" {
		return layout
	}
	layout.Notices = v.flasher.Pop(r.Context(), sid)
	token, err := v.csrf.GenerateToken(sid)
	if err != nil {
		v.logger.Error("Error generating CSRF token", err)
	}
	layout.CSRFToken = token
	return layout
}

// Flash queues a notice for the next rendered page of the session
func (v *Views) Flash(ctx context.Context, sid string, n notify.Notice) {
	if sid == "" {
		return
	}
	if err := v.flasher.Push(ctx, sid, n); err != nil {
		v.logger.Warn("Error saving flash message", err)
	}
}

// Redirect flashes n and sends the browser to url
func (v *Views) Redirect(w http.ResponseWriter, r *http.Request, url string, n *notify.Notice) {
	if n != nil {
		v.Flash(r.Context(), SessionIDFromContext(r.Context()), *n)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Render executes the named template
func (v *Views) Render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		v.logger.Error(fmt.Sprintf("Error rendering %s template", name), err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
