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

// SearchEndpoints handles GET /Endpoint.
func (s *Server) SearchEndpoints(w http.ResponseWriter, r *http.Request) {
	eps := s.Store.SearchEndpoints(r.URL.Query())
	writeBundle(w, matchEntries(eps), nil)
}

// GetEndpoint handles GET /Endpoint/{id}.
func (s *Server) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := s.Store.GetEndpoint(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateEndpoint handles POST /Endpoint (spec §4.2 "Create: non-admin
// callers must set managingOrganization to themselves; else 403").
func (s *Server) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var e store.Endpoint
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed Endpoint body")
		return
	}

	if !caller.Admin {
		owner := e.ManagingOrganization.ID()
		if owner == "" || owner != caller.OrganizationID {
			httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("managingOrganization must be the caller's own organization"))
			return
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.Store.PutEndpoint(&e)
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateEndpoint handles PUT /Endpoint/{id} (spec §4.2 "Update: non-admin
// callers may modify only endpoints they manage").
func (s *Server) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())

	existing, err := s.Store.GetEndpoint(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}

	if !caller.Admin && existing.ManagingOrganization.ID() != caller.OrganizationID {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("caller does not manage Endpoint/"+id))
		return
	}

	var incoming store.Endpoint
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed Endpoint body")
		return
	}
	incoming.ID = id

	if !caller.Admin {
		incoming.ManagingOrganization = fhir.Reference{Reference: "Organization/" + caller.OrganizationID}
	}

	s.Store.PutEndpoint(&incoming)
	writeJSON(w, http.StatusOK, &incoming)
}
