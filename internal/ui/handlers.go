package ui

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/progress"
	"github.com/me/partnerportal/internal/store"
)

// UI handles the web user interface.
type UI struct {
	service  *portal.Service
	sessions *SessionManager
	logger   *slog.Logger
	secure   bool // Use secure cookies (HTTPS)
}

// Config holds UI configuration.
type Config struct {
	Secure     bool          // Use secure cookies for HTTPS
	SessionTTL time.Duration // Session lifetime before capping at token expiry
}

// New creates a new UI handler.
func New(svc *portal.Service, st store.Store, logger *slog.Logger, cfg Config) *UI {
	return &UI{
		service:  svc,
		sessions: NewSessionManager(st, cfg.SessionTTL),
		logger:   logger.With("component", "ui"),
		secure:   cfg.Secure,
	}
}

// Sessions returns the session manager shared with the JSON API.
func (ui *UI) Sessions() *SessionManager {
	return ui.sessions
}

// flashErrors maps the error query parameter to a message key.
var flashErrors = map[string]string{
	"invalid_email": "ui.error.invalid_email",
	"invalid_code":  "ui.error.invalid_code",
	"code_format":   "ui.error.code_format",
	"rate_limited":  "ui.error.rate_limited",
	"backend":       "ui.error.backend",
	"gated":         "ui.error.gated",
	"invalid_value": "ui.error.invalid_value",
	"note":          "ui.error.note",
}

func flashError(r *http.Request) string {
	return flashErrors[r.URL.Query().Get("error")]
}

// HandleLogin renders the email step of the login.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard.
	if sess, _ := ui.sessions.GetSessionFromRequest(r); sess != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ui.render(w, r, http.StatusOK, "login", map[string]any{
		"Title": "ui.login.title",
		"Error": flashError(r),
		"Email": r.URL.Query().Get("email"),
	})
}

// HandleLoginPost requests a one-time code for the submitted email.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=invalid_email", http.StatusSeeOther)
		return
	}

	email, err := ui.service.RequestOTP(r.Context(), r.FormValue("email"))
	switch {
	case err == nil:
	case backend.IsNotFound(err):
		// Unknown addresses get the same answer as known ones.
		email = strings.ToLower(strings.TrimSpace(r.FormValue("email")))
		ui.logger.Info("otp requested for unknown email", "email", logging.MaskEmail(email))
	default:
		http.Redirect(w, r, "/login?error="+loginErrorCode(err), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/login/verify?email="+url.QueryEscape(email), http.StatusSeeOther)
}

// HandleVerify renders the code step of the login.
func (ui *UI) HandleVerify(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ui.render(w, r, http.StatusOK, "verify", map[string]any{
		"Title": "ui.verify.title",
		"Error": flashError(r),
		"Email": email,
	})
}

// HandleVerifyPost exchanges the code for a session.
func (ui *UI) HandleVerifyPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=invalid_email", http.StatusSeeOther)
		return
	}
	email := r.FormValue("email")

	ident, err := ui.service.VerifyOTP(r.Context(), email, strings.TrimSpace(r.FormValue("code")))
	if err != nil {
		http.Redirect(w, r, "/login/verify?email="+url.QueryEscape(email)+"&error="+loginErrorCode(err), http.StatusSeeOther)
		return
	}

	sess, err := ui.sessions.CreateSession(r.Context(), ident)
	if err != nil {
		ui.logger.Error("create session failed", "error", err)
		http.Redirect(w, r, "/login?error=backend", http.StatusSeeOther)
		return
	}

	SetSessionCookie(w, sess, ui.secure)
	ui.logger.Info("user logged in", "email", logging.MaskEmail(sess.Email), "role", sess.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginErrorCode(err error) string {
	var ve *portal.ValidationError
	switch {
	case errors.As(err, &ve):
		if len(ve.Fields) > 0 && ve.Fields[0].Field == "code" {
			return "code_format"
		}
		return "invalid_email"
	case errors.Is(err, portal.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, portal.ErrInvalidCode):
		return "invalid_code"
	}
	return "backend"
}

// HandleLogout clears the session and redirects to login.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, _ := ui.sessions.GetSessionFromRequest(r); sess != nil {
		_ = ui.sessions.DeleteSession(r.Context(), sess.ID)
		ui.logger.Info("user logged out", "email", logging.MaskEmail(sess.Email))
	}
	ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleDashboard lists onboardings. A partner owning a single record goes
// straight to it.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	list, err := ui.service.Onboardings(r.Context(), sess)
	if err != nil {
		ui.handleServiceError(w, r, err)
		return
	}
	if !sess.IsAdmin() && len(list) == 1 {
		http.Redirect(w, r, "/onboardings/"+url.PathEscape(list[0].Onboarding.ClientID), http.StatusSeeOther)
		return
	}

	ui.render(w, r, http.StatusOK, "dashboard", map[string]any{
		"Title":       "ui.dashboard.title",
		"Onboardings": list,
	})
}

// HandleOnboarding renders the steps of one record.
func (ui *UI) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")

	detail, err := ui.service.Detail(r.Context(), sess, clientID)
	if err != nil {
		ui.handleServiceError(w, r, err)
		return
	}

	ui.render(w, r, http.StatusOK, "onboarding", map[string]any{
		"Title":  "ui.app_name",
		"Detail": detail,
		"Error":  flashError(r),
	})
}

// HandleFieldPost writes one field and redirects back to the record.
func (ui *UI) HandleFieldPost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")
	back := "/onboardings/" + url.PathEscape(clientID)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, back+"?error=invalid_value", http.StatusSeeOther)
		return
	}

	_, err := ui.service.UpdateField(r.Context(), sess, clientID, r.FormValue("field"), r.FormValue("value"))
	var (
		gateErr    *progress.GateError
		unknownErr *progress.UnknownFieldError
		invalidErr *progress.InvalidValueError
	)
	switch {
	case err == nil:
		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.As(err, &gateErr):
		http.Redirect(w, r, back+"?error=gated", http.StatusSeeOther)
	case errors.As(err, &unknownErr), errors.As(err, &invalidErr), backend.IsInvalidInput(err):
		http.Redirect(w, r, back+"?error=invalid_value", http.StatusSeeOther)
	default:
		ui.handleServiceError(w, r, err)
	}
}

// HandleNotes lists the notes of a record.
func (ui *UI) HandleNotes(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")

	notes, err := ui.service.Notes(r.Context(), sess, clientID)
	if err != nil {
		ui.handleServiceError(w, r, err)
		return
	}

	ui.render(w, r, http.StatusOK, "notes", map[string]any{
		"Title":    "ui.notes.title",
		"ClientID": clientID,
		"Notes":    notes,
		"Error":    flashError(r),
	})
}

// HandleNotePost adds a note.
func (ui *UI) HandleNotePost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")
	back := "/onboardings/" + url.PathEscape(clientID) + "/notes"

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, back+"?error=note", http.StatusSeeOther)
		return
	}

	_, err := ui.service.AddNote(r.Context(), sess, clientID, r.FormValue("text"))
	var ve *portal.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.As(err, &ve):
		http.Redirect(w, r, back+"?error=note", http.StatusSeeOther)
	default:
		ui.handleServiceError(w, r, err)
	}
}

// HandleION renders ION orders and subscriptions.
func (ui *UI) HandleION(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")

	ion, err := ui.service.ION(r.Context(), sess, clientID)
	if err != nil {
		ui.handleServiceError(w, r, err)
		return
	}

	ui.render(w, r, http.StatusOK, "ion", map[string]any{
		"Title":    "ui.detail.ion",
		"ClientID": clientID,
		"ION":      ion,
	})
}

// handleServiceError renders the page for a failed portal operation. A
// rejected backend token ends every session of that user.
func (ui *UI) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, portal.ErrForbidden), backend.IsForbidden(err):
		ui.renderMessage(w, r, http.StatusForbidden, "ui.error.forbidden")
	case backend.IsNotFound(err):
		ui.renderMessage(w, r, http.StatusNotFound, "ui.error.not_found")
	case backend.IsUnauthorized(err):
		if sess := SessionFromContext(r.Context()); sess != nil {
			n, derr := ui.sessions.EndSessions(r.Context(), sess.Email)
			if derr != nil {
				ui.logger.Error("end sessions", "error", derr)
			}
			ui.logger.Info("backend token rejected", "email", logging.MaskEmail(sess.Email), "sessions_ended", n)
		}
		ClearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		ui.logger.Error("backend request failed", "path", r.URL.Path, "error", err)
		ui.renderMessage(w, r, http.StatusBadGateway, "ui.error.backend")
	}
}

func (ui *UI) render(w http.ResponseWriter, r *http.Request, status int, template string, data map[string]any) {
	tr := translatorFor(r)
	if _, ok := data["Session"]; !ok {
		data["Session"] = SessionFromContext(r.Context())
	}
	data["Lang"] = tr.Lang.String()
	if key, ok := data["Title"].(string); ok {
		data["Title"] = tr.T(key) + " - " + tr.T("ui.app_name")
	}

	var buf bytes.Buffer
	if err := renderTemplate(&buf, template, data, tr); err != nil {
		ui.logger.Error("template render failed", "template", template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderMessage(w http.ResponseWriter, r *http.Request, status int, messageKey string) {
	ui.render(w, r, status, "error", map[string]any{
		"Title":   "ui.error.title",
		"Message": messageKey,
	})
}
