// Package web renders Gatehouse's HTML pages.
//
// This is presentation glue over the session broker: every handler builds a
// fresh request-scoped session.State, asks the broker to restore or change
// it, and renders a template. No authorization decisions live here beyond
// sending anonymous callers to the login form.
package web

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"gatehouse/cmd/internal/auth/session"
)

// Handler serves the login form and the protected pages.
type Handler struct {
	log    *slog.Logger
	broker *session.Broker
	tmpl   map[string]*template.Template
}

// NewHandler constructs the page handler and parses the embedded templates.
func NewHandler(log *slog.Logger, broker *session.Broker) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if broker == nil {
		return nil, errors.New("web: nil session broker")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Handler{log: log, broker: broker, tmpl: tmpl}, nil
}

// Register wires page routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/", h.handleDashboard)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc("/settings", h.handleSettings)
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data pageData) {
	t, ok := h.tmpl[page]
	if !ok {
		h.log.Error("web.render.missing_template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.log.Error("web.render.fail", "page", page, "err", err)
	}
}

// restore runs the once-per-cycle cookie revalidation for a page load.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) *session.State {
	st := &session.State{}
	h.broker.Restore(r.Context(), w, r, st)
	return st
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// "/" matches everything; anything else under it is a 404.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st := h.restore(w, r)
	if !st.Authenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "dashboard.html", pageData{Session: st})
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st := h.restore(w, r)
	if !st.Authenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.render(w, http.StatusOK, "settings.html", pageData{Session: st})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st := h.restore(w, r)
		if st.Authenticated {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.render(w, http.StatusOK, "login.html", pageData{Session: st})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")

		st := &session.State{}
		err := h.broker.Authenticate(r.Context(), w, st, username, password)
		if err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		data := pageData{Session: st, Username: username}
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			data.Error = "Invalid username or password."
			h.render(w, http.StatusUnauthorized, "login.html", data)
		case errors.Is(err, session.ErrTokenPersistence):
			// Distinct from bad credentials: the password was right but the
			// session could not be started.
			data.Error = "Could not start a session. Please try again."
			h.render(w, http.StatusServiceUnavailable, "login.html", data)
		default:
			h.log.Error("web.login.fail", "err", err)
			data.Error = "Internal error. Please try again."
			h.render(w, http.StatusInternalServerError, "login.html", data)
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Restore first so the broker knows which user row to clear.
	st := h.restore(w, r)
	if err := h.broker.Logout(r.Context(), w, st); err != nil {
		h.log.Error("web.logout.fail", "err", err)
	}

	// Full refresh back to the anonymous view.
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
