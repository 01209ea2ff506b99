package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/ui"
	"github.com/me/partnerportal/pkg/model"
)

type otpRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type sessionResponse struct {
	SessionID   string         `json:"session_id,omitempty"`
	Email       string         `json:"email"`
	Role        model.UserRole `json:"role"`
	CompanyName string         `json:"company_name"`
	ClientIDs   []string       `json:"client_ids"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func newSessionResponse(sess *model.Session, withID bool) sessionResponse {
	resp := sessionResponse{
		Email:       sess.Email,
		Role:        sess.Role,
		CompanyName: sess.CompanyName,
		ClientIDs:   sess.ClientIDs,
		ExpiresAt:   sess.ExpiresAt,
	}
	if withID {
		resp.SessionID = sess.ID
	}
	return resp
}

// handleRequestOTP asks the backend to send a login code. Unknown addresses
// are answered like known ones.
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req otpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email, err := s.service.RequestOTP(r.Context(), req.Email)
	if err != nil {
		if !backend.IsNotFound(err) {
			s.respondServiceError(w, r, err)
			return
		}
		email = strings.ToLower(strings.TrimSpace(req.Email))
		s.logger.Info("otp requested for unknown email", "email", logging.MaskEmail(email))
	}

	respondAccepted(w, reqID, map[string]any{
		"email": email,
		"sent":  true,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ident, err := s.service.VerifyOTP(r.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	sess, err := s.ui.Sessions().CreateSession(r.Context(), ident)
	if err != nil {
		s.logger.Error("create session failed", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code:    model.ErrInternal,
			Message: "failed to create session",
		})
		return
	}

	ui.SetSessionCookie(w, sess, s.config.SecureCookies)
	s.logger.Info("api login", "email", logging.MaskEmail(sess.Email), "role", sess.Role)
	respondCreated(w, reqID, newSessionResponse(sess, true))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := sessionFrom(r)

	if err := s.ui.Sessions().DeleteSession(r.Context(), sess.ID); err != nil {
		s.logger.Error("delete session failed", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code:    model.ErrInternal,
			Message: "failed to delete session",
		})
		return
	}

	ui.ClearSessionCookie(w)
	respondOK(w, reqID, map[string]any{"logged_out": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), newSessionResponse(sessionFrom(r), false))
}
