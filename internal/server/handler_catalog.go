package server

import (
	"net/http"

	"github.com/me/partnerportal/internal/catalog"
	"github.com/me/partnerportal/pkg/model"
)

type catalogResponse struct {
	Manufacturer model.ManufacturerKey      `json:"manufacturer"`
	Recognized   bool                       `json:"recognized"`
	Steps        []model.MainStepDefinition `json:"steps"`
}

type normalizeResponse struct {
	Value        string                `json:"value"`
	Manufacturer model.ManufacturerKey `json:"manufacturer"`
	Label        string                `json:"label"`
	Recognized   bool                  `json:"recognized"`
}

// handleCatalog returns the effective steps for ?manufacturer=. An absent or
// unrecognized value yields the default workflow.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := r.URL.Query().Get("manufacturer")

	key, ok := catalog.Parse(raw)
	if !ok {
		key = s.service.Normalizer().Normalize(raw)
	}
	respondOK(w, reqID, catalogResponse{
		Manufacturer: key,
		Recognized:   ok,
		Steps:        catalog.StepsFor(key),
	})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := r.URL.Query().Get("value")

	key, ok := catalog.Parse(raw)
	if !ok {
		key = s.service.Normalizer().Normalize(raw)
	}
	respondOK(w, reqID, normalizeResponse{
		Value:        raw,
		Manufacturer: key,
		Label:        key.Label(),
		Recognized:   ok,
	})
}
