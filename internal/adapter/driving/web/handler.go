// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	httphandler "github.com/ericfisherdev/pagescan/internal/adapter/driving/http"
	"github.com/ericfisherdev/pagescan/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/pagescan/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/pagescan/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/pagescan/internal/application"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	tokens       *application.TokenService
	results      driven.ResultStore
	cookieSecure bool
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	tokens *application.TokenService,
	results driven.ResultStore,
	cookieSecure bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tokens:       tokens,
		results:      results,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type sessionKey struct{}

// requireSession redirects to the login page, remembering the requested
// path, when the request carries no valid session cookie.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := httphandler.SessionUsername(r, h.tokens)
		if !ok {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, username)))
	}
}

func sessionUser(r *http.Request) string {
	username, _ := r.Context().Value(sessionKey{}).(string)
	return username
}

// LoginPage renders the login form, or skips it for an existing session.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := httphandler.SessionUsername(r, h.tokens); ok {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}

	token := csrfToken(w, r, h.cookieSecure)
	h.renderPage(w, r, http.StatusOK, vm.LayoutViewModel{Title: "Sign in"},
		pages.Login(vm.LoginViewModel{Action: loginAction(r), CSRFToken: token}))
}

// LoginSubmit handles the HTML login form.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !validateCSRF(r) {
		http.Error(w, "invalid form submission", http.StatusForbidden)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	token := csrfToken(w, r, h.cookieSecure)

	fail := func(status int, msg string) {
		h.renderPage(w, r, status, vm.LayoutViewModel{Title: "Sign in"},
			pages.Login(vm.LoginViewModel{Action: loginAction(r), CSRFToken: token, Username: username, Error: msg}))
	}

	if username == "" || password == "" {
		fail(http.StatusBadRequest, "Username and password are required")
		return
	}
	if !h.tokens.Authenticate(username, password) {
		h.logger.Warn("login rejected", "username", username, "remote", r.RemoteAddr)
		fail(http.StatusUnauthorized, "Invalid credentials")
		return
	}

	session, err := h.tokens.Issue(username)
	if err != nil {
		h.logger.Error("failed to issue session token", "error", err)
		fail(http.StatusInternalServerError, "Sign in failed, please try again")
		return
	}

	httphandler.SetSessionCookie(w, session, h.cookieSecure)
	h.logger.Info("login succeeded", "username", username)
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
}

// Logout clears the session cookie and returns to the start page. POST
// requests must carry the CSRF token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !validateCSRF(r) {
		http.Error(w, "invalid form submission", http.StatusForbidden)
		return
	}
	httphandler.ClearSessionCookie(w, h.cookieSecure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CapturePage renders the camera capture page.
func (h *Handler) CapturePage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, h.layout(w, r, "Capture", "capture"),
		pages.Capture(vm.CaptureViewModel{EditorPath: "/editor"}))
}

// EditorPage renders the results list and the editor for the result named
// by ?id=, defaulting to the newest one.
func (h *Handler) EditorPage(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list results", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var (
		data       vm.EditorViewModel
		selectedID int64
		status     = http.StatusOK
	)

	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid result id", http.StatusBadRequest)
			return
		}
		selectedID = id
		for _, res := range results {
			if res.ID == id {
				data.Selected = toResultDetailViewModel(res)
				break
			}
		}
		if data.Selected == nil {
			data.NotFound = true
			status = http.StatusNotFound
		}
	} else if len(results) > 0 {
		selectedID = results[0].ID
		data.Selected = toResultDetailViewModel(results[0])
	}

	data.Results = make([]vm.ResultItemViewModel, 0, len(results))
	for _, res := range results {
		data.Results = append(data.Results, toResultItemViewModel(res, selectedID))
	}

	h.renderPage(w, r, status, h.layout(w, r, "Results", "editor"), pages.Editor(data))
}

func (h *Handler) layout(w http.ResponseWriter, r *http.Request, title, nav string) vm.LayoutViewModel {
	return vm.LayoutViewModel{
		Title:     title,
		Username:  sessionUser(r),
		CSRFToken: csrfToken(w, r, h.cookieSecure),
		ActiveNav: nav,
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, layout vm.LayoutViewModel, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := templates.Layout(layout, body).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "title", layout.Title, "error", err)
	}
}

// loginAction keeps the ?next= target across the form post.
func loginAction(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if next == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(safeNext(next))
}

// safeNext only allows same-origin relative paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
