package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
	Auth        bool     `json:"auth"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

var endpoints = []endpointInfo{
	{"/api/v1/health", []string{"GET"}, "Server health and version", false},
	{"/api/v1/catalog", []string{"GET"}, "Effective onboarding steps for ?manufacturer=", false},
	{"/api/v1/manufacturers/normalize", []string{"GET"}, "Canonical manufacturer key for ?value=", false},
	{"/api/v1/auth/otp", []string{"POST"}, "Request a one-time login code", false},
	{"/api/v1/auth/verify", []string{"POST"}, "Exchange a one-time code for a session", false},
	{"/api/v1/auth/logout", []string{"POST"}, "End the current session", true},
	{"/api/v1/me", []string{"GET"}, "Current session", true},
	{"/api/v1/onboardings", []string{"GET"}, "Onboarding records visible to the caller", true},
	{"/api/v1/onboardings/{client_id}", []string{"GET"}, "Record with progress and timeline", true},
	{"/api/v1/onboardings/{client_id}/progress", []string{"GET"}, "Evaluated checklist of a record", true},
	{"/api/v1/onboardings/{client_id}/timeline", []string{"GET"}, "Linear substep timeline of a record", true},
	{"/api/v1/onboardings/{client_id}/fields/{field_key}", []string{"PUT"}, "Update one checklist field", true},
	{"/api/v1/onboardings/{client_id}/notes", []string{"GET", "POST"}, "Notes on a record", true},
	{"/api/v1/onboardings/{client_id}/ion/orders", []string{"GET"}, "ION orders (cached)", true},
	{"/api/v1/onboardings/{client_id}/ion/subscriptions", []string{"GET"}, "ION subscriptions (cached)", true},
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "Partner Portal API",
		Version:     "v1",
		Description: "Partner onboarding checklist, notes and ION data",
		Endpoints:   endpoints,
	})
}
