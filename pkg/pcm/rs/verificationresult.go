package rs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/store"
)

// GetVerificationResult handles GET /VerificationResult/{id} (spec §4.2:
// "Read by id and search by type are open to authenticated callers").
func (s *Server) GetVerificationResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.Store.GetVerificationResult(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SearchVerificationResults handles GET /VerificationResult.
func (s *Server) SearchVerificationResults(w http.ResponseWriter, r *http.Request) {
	all := s.Store.ListVerificationResults()
	writeBundle(w, matchEntries(all), nil)
}

// CreateVerificationResult handles POST /VerificationResult (spec §4.2: "if
// validator is absent, default to the caller's parent org (or the caller if
// none)").
func (s *Server) CreateVerificationResult(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var v store.VerificationResult
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed VerificationResult body")
		return
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = fhir.VerificationResultValidated
	}

	if len(v.Validator) == 0 {
		validatorOrg := caller.OrganizationID
		if org, err := s.Store.GetOrganization(caller.OrganizationID); err == nil && org.PartOf != nil {
			validatorOrg = org.PartOf.ID()
		}
		v.Validator = []store.VerificationResultValidator{
			{Organization: fhir.Reference{Reference: "Organization/" + validatorOrg}},
		}
	}

	s.Store.PutVerificationResult(&v)
	writeJSON(w, http.StatusCreated, &v)
}
