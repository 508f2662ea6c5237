package rs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/store"
)

// SearchHealthcareServices handles GET /HealthcareService.
func (s *Server) SearchHealthcareServices(w http.ResponseWriter, r *http.Request) {
	hs := s.Store.SearchHealthcareServices(r.URL.Query())
	writeBundle(w, matchEntries(hs), nil)
}

// GetHealthcareService handles GET /HealthcareService/{id}.
func (s *Server) GetHealthcareService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h, err := s.Store.GetHealthcareService(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// CreateHealthcareService handles POST /HealthcareService (spec §4.2:
// "admin may create either variant. Non-admin creating a catalog-tagged
// instance -> stored as catalog. Non-admin creating an untagged/instance
// resource -> forced providedBy = caller, active <- false if unset, tagged
// instance; if basedOnCanonical is absent, a canonical copy is auto-created
// ... and the instance is linked to it" — T6).
func (s *Server) CreateHealthcareService(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var h store.HealthcareService
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed HealthcareService body")
		return
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	if caller.Admin {
		s.Store.PutHealthcareService(&h)
		writeJSON(w, http.StatusCreated, &h)
		return
	}

	if h.IsCatalog() {
		s.Store.PutHealthcareService(&h)
		writeJSON(w, http.StatusCreated, &h)
		return
	}

	h.ProvidedBy = &fhir.Reference{Reference: "Organization/" + caller.OrganizationID}
	h.Meta.Tag = []fhir.Coding{{System: fhir.SystemMetaTag, Code: fhir.MetaTagInstance}}

	if h.BasedOnCanonical == nil {
		canonical := &store.HealthcareService{
			ID:     uuid.NewString(),
			Active: h.Active,
			Meta:   fhir.Meta{Tag: []fhir.Coding{{System: fhir.SystemMetaTag, Code: fhir.MetaTagCatalog}}},
			Name:   h.Name,
			Type:   h.Type,
			Identifier: []fhir.Identifier{
				{System: fhir.SystemHealthcareServiceCatalogID, Value: uuid.NewString()},
			},
		}
		s.Store.PutHealthcareService(canonical)
		h.BasedOnCanonical = &fhir.Reference{Reference: "HealthcareService/" + canonical.ID}
	}

	s.Store.PutHealthcareService(&h)
	writeJSON(w, http.StatusCreated, &h)
}

// UpdateHealthcareService handles PUT /HealthcareService/{id} (spec §4.2:
// "non-admin may not edit catalog resources (403); may edit own instances
// with providedBy preserved").
func (s *Server) UpdateHealthcareService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())

	existing, err := s.Store.GetHealthcareService(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}

	if !caller.Admin {
		if existing.IsCatalog() {
			httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("non-admin may not edit a catalog HealthcareService"))
			return
		}
		providedByID := ""
		if existing.ProvidedBy != nil {
			providedByID = existing.ProvidedBy.ID()
		}
		if providedByID != caller.OrganizationID {
			httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("caller does not own HealthcareService/"+id))
			return
		}
	}

	var incoming store.HealthcareService
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed HealthcareService body")
		return
	}
	incoming.ID = id

	if !caller.Admin {
		incoming.ProvidedBy = existing.ProvidedBy
		incoming.Meta = existing.Meta
		incoming.BasedOnCanonical = existing.BasedOnCanonical
	}

	s.Store.PutHealthcareService(&incoming)
	writeJSON(w, http.StatusOK, &incoming)
}
