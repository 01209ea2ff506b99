package server

import (
	"net/http"
	"strings"

	"github.com/me/partnerportal/internal/ui"
	"github.com/me/partnerportal/pkg/model"
)

// sessionFromRequest resolves the portal session from a bearer session ID
// or the session cookie. Expired sessions resolve to nil.
func (s *Server) sessionFromRequest(r *http.Request) (*model.Session, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		id, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return nil, nil
		}
		return s.ui.Sessions().GetSession(r.Context(), strings.TrimSpace(id))
	}
	return s.ui.Sessions().GetSessionFromRequest(r)
}

// apiAuthMiddleware rejects requests without a live session and stores the
// session in the request context.
func (s *Server) apiAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())

		sess, err := s.sessionFromRequest(r)
		if err != nil {
			s.logger.Error("session lookup failed", "error", err)
			respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
				Code:    model.ErrInternal,
				Message: "session lookup failed",
			})
			return
		}
		if sess == nil {
			respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
				Code:    model.ErrUnauthorized,
				Message: "authentication required",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(ui.WithSession(r.Context(), sess)))
	})
}

// sessionFrom returns the session stored by apiAuthMiddleware.
func sessionFrom(r *http.Request) *model.Session {
	return ui.SessionFromContext(r.Context())
}
