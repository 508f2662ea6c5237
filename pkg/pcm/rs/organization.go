package rs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/store"
)

// SearchOrganizations handles GET /Organization (spec §4.2: "Any
// authenticated caller may search and read").
func (s *Server) SearchOrganizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgs := s.Store.SearchOrganizations(q)

	var includes []store.BundleEntry
	includeEndpoint, includePartOf, iterate := parseOrgIncludes(q)
	if includeEndpoint || includePartOf {
		includes = s.Store.IncludeOrganizationGraph(orgs, includeEndpoint, includePartOf, iterate)
	}

	writeBundle(w, matchEntries(orgs), includes)
}

// GetOrganization handles GET /Organization/{id}.
func (s *Server) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := s.Store.GetOrganization(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateOrganization handles PUT /Organization/{id} (spec §4.2 "Update is
// permitted for the PCM admin, or for the organization whose id equals the
// caller's organization_id. When a non-admin updates, partOf and type are
// preserved from storage; an attempt to set active = true on an
// organization previously active = false is silently preserved as false").
func (s *Server) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())

	existing, err := s.Store.GetOrganization(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}

	if !caller.Admin && caller.OrganizationID != id {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("only the PCM admin or the organization itself may update Organization/"+id))
		return
	}

	var incoming store.Organization
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed Organization body")
		return
	}
	incoming.ID = id

	if !caller.Admin {
		incoming.PartOf = existing.PartOf
		incoming.Type = existing.Type
		if !existing.Active {
			incoming.Active = false
		}
	}

	s.Store.PutOrganization(&incoming)
	writeJSON(w, http.StatusOK, &incoming)
}

func parseOrgIncludes(q map[string][]string) (includeEndpoint, includePartOf, iterate bool) {
	for _, v := range q["_include"] {
		switch v {
		case "Organization:endpoint":
			includeEndpoint = true
		case "Organization:partof":
			includePartOf = true
		}
	}
	for _, v := range q["_include:iterate"] {
		switch v {
		case "Organization:endpoint", "Organization:partof":
			iterate = true
		}
	}
	return
}
