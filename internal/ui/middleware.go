package ui

import (
	"context"
	"net/http"

	"github.com/me/partnerportal/pkg/model"
)

type sessionKey struct{}

// SessionFromContext returns the portal session attached by AuthMiddleware,
// or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey{}).(*model.Session)
	return sess
}

// WithSession attaches sess to ctx. The JSON API uses it for Bearer logins.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// AuthMiddleware resolves the portal_session cookie. Partners and admins
// without a live session are sent to /login; a cookie naming an expired or
// ended session is cleared on the way out.
func (ui *UI) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := ui.sessions.GetSessionFromRequest(r)
		switch {
		case err != nil:
			ui.logger.Error("session lookup failed", "error", err)
		case sess != nil:
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
			return
		default:
			if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
				ClearSessionCookie(w)
			}
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
