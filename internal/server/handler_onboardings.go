package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// pathParam returns a decoded URL parameter. Field keys contain spaces and
// ampersands, so clients send them escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) handleListOnboardings(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.Onboardings(r.Context(), sessionFrom(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), list)
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.Detail(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), detail)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.Detail(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), detail.Progress)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.Detail(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), detail.Timeline)
}

type updateFieldRequest struct {
	Value any `json:"value"`
}

// handleUpdateField writes one field and returns the progress evaluated
// against the refetched snapshot.
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.service.UpdateField(r.Context(), sessionFrom(r),
		pathParam(r, "clientID"), pathParam(r, "fieldKey"), req.Value)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), p)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.service.Notes(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), notes)
}

type addNoteRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req addNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := s.service.AddNote(r.Context(), sessionFrom(r), pathParam(r, "clientID"), req.Text)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondCreated(w, RequestIDFromContext(r.Context()), note)
}

func (s *Server) handleListIONOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.IONOrders(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), orders)
}

func (s *Server) handleListIONSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.service.IONSubscriptions(r.Context(), sessionFrom(r), pathParam(r, "clientID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), subs)
}
