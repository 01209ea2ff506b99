package server

import (
	"errors"
	"net/http"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/progress"
	"github.com/me/partnerportal/pkg/model"
)

// respondServiceError maps a portal or backend error onto the envelope.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := RequestIDFromContext(r.Context())

	var (
		ve         *portal.ValidationError
		gateErr    *progress.GateError
		unknownErr *progress.UnknownFieldError
		invalidErr *progress.InvalidValueError
	)
	switch {
	case errors.As(err, &ve):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid request", ve.Fields...))
	case errors.As(err, &invalidErr):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(invalidErr.Error(),
			model.FieldError{Field: invalidErr.FieldKey, Message: "invalid value"}))
	case backend.IsInvalidInput(err):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
	case errors.As(err, &unknownErr):
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("field", unknownErr.FieldKey))
	case errors.As(err, &gateErr):
		respondError(w, reqID, http.StatusConflict, &model.APIError{
			Code:    model.ErrConflict,
			Message: gateErr.Error(),
		})
	case backend.IsUnauthorized(err):
		if sess := sessionFrom(r); sess != nil {
			if _, derr := s.ui.Sessions().EndSessions(r.Context(), sess.Email); derr != nil {
				s.logger.Error("end sessions", "error", derr)
			}
		}
		respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrUnauthorized,
			Message: err.Error(),
		})
	case errors.Is(err, portal.ErrInvalidCode):
		respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
			Code:    model.ErrUnauthorized,
			Message: err.Error(),
		})
	case errors.Is(err, portal.ErrForbidden), backend.IsForbidden(err):
		respondError(w, reqID, http.StatusForbidden, &model.APIError{
			Code:    model.ErrForbidden,
			Message: "access to this onboarding is not allowed",
		})
	case backend.IsNotFound(err):
		respondError(w, reqID, http.StatusNotFound, &model.APIError{
			Code:    model.ErrNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, portal.ErrRateLimited):
		respondError(w, reqID, http.StatusTooManyRequests, &model.APIError{
			Code:    model.ErrRateLimited,
			Message: err.Error(),
		})
	default:
		s.logger.Error("backend request failed", "path", r.URL.Path, "error", err)
		respondError(w, reqID, http.StatusBadGateway, &model.APIError{
			Code:    model.ErrBackend,
			Message: "backend request failed",
		})
	}
}
