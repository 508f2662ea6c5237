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

// SearchConsents handles GET /Consent (spec §4.2: "admin sees all;
// non-admins see only consents where they are an actor, and the returned
// Bundle's _include expansion is filtered to only those
// Organizations/Endpoints reachable via permitted consents" — T4).
func (s *Server) SearchConsents(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	all := s.Store.SearchConsents(r.URL.Query())

	visible := all
	if !caller.Admin {
		visible = make([]*store.Consent, 0, len(all))
		for _, c := range all {
			if c.HasActorOrg(caller.OrganizationID) {
				visible = append(visible, c)
			}
		}
	}

	var includes []store.BundleEntry
	if wantsConsentActorInclude(r.URL.Query()) {
		includes = s.Store.IncludeConsentActors(visible)
	}

	writeBundle(w, matchEntries(visible), includes)
}

func wantsConsentActorInclude(q map[string][]string) bool {
	for _, v := range q["_include"] {
		if v == "Consent:actor" {
			return true
		}
	}
	return false
}

// GetConsent handles GET /Consent/{id} (spec §4.2: "admin, or any
// organization appearing in provision.actor; other callers receive 404
// (not 403, to avoid existence disclosure)").
func (s *Server) GetConsent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())

	c, err := s.Store.GetConsent(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	if !caller.Admin && !c.HasActorOrg(caller.OrganizationID) {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.NotFound("Consent/"+id))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type createConsentRequest struct {
	PatientIdentifier fhir.Identifier `json:"patientIdentifier"`
	PCMService        *fhir.Reference `json:"pcmService,omitempty"`
}

// CreateConsent handles POST /Consent (spec §4.2: "requires
// patient.identifier and a resolvable caller organization; server generates
// id, business identifier, default scope/category/purpose coding,
// status = proposed, and sets the caller as the sole IRCP actor").
func (s *Server) CreateConsent(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())

	var req createConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed Consent body")
		return
	}
	if req.PatientIdentifier.Value == "" {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "required", "patient.identifier is required")
		return
	}
	if _, err := s.Store.GetOrganization(caller.OrganizationID); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "required", "caller organization does not resolve")
		return
	}

	id := uuid.NewString()
	c := &store.Consent{
		ID:         id,
		Identifier: []fhir.Identifier{{System: fhir.SystemConsentID, Value: id}},
		Status:     fhir.ConsentProposed,
		PatientID:  req.PatientIdentifier,
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/" + caller.OrganizationID}},
		},
		Category: []fhir.CodeableConcept{{Text: "patient consent"}},
		Scope:    fhir.CodeableConcept{Text: "patient-privacy"},
		Purpose:  []fhir.Coding{{System: "http://terminology.hl7.org/CodeSystem/v3-ActReason", Code: "TREAT"}},
		PCMService: req.PCMService,
	}

	s.Store.PutConsent(c)
	writeJSON(w, http.StatusCreated, c)
}

// UpdateConsent handles PUT /Consent/{id} (spec §4.2: "admin may set any
// field; otherwise the caller must be the IRCP actor and the only change
// permitted is status <- inactive" — T5).
func (s *Server) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())

	existing, err := s.Store.GetConsent(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}

	var incoming store.Consent
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed Consent body")
		return
	}
	incoming.ID = id

	if caller.Admin {
		s.Store.PutConsent(&incoming)
		writeJSON(w, http.StatusOK, &incoming)
		return
	}

	isIRCP := false
	for _, a := range existing.ActorsWithRole(fhir.ActorRoleIRCP) {
		if a.ID() == caller.OrganizationID {
			isIRCP = true
			break
		}
	}
	if !isIRCP {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("only the IRCP actor may update Consent/"+id))
		return
	}

	if existing.Status != fhir.ConsentActive || incoming.Status != fhir.ConsentInactive || !onlyStatusChanged(existing, &incoming) {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("non-admin update to Consent/"+id+" may only transition an active consent to inactive"))
		return
	}

	updated := *existing
	updated.Status = fhir.ConsentInactive
	s.Store.PutConsent(&updated)
	writeJSON(w, http.StatusOK, &updated)
}

// onlyStatusChanged reports whether incoming differs from existing only in
// Status (spec §4.2's "the only change permitted is status <- inactive").
func onlyStatusChanged(existing, incoming *store.Consent) bool {
	a := *existing
	b := *incoming
	a.Status, b.Status = "", ""
	return consentsEqual(&a, &b)
}

func consentsEqual(a, b *store.Consent) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(aj) == string(bj)
}

type approveConsentRequest struct {
	CustodianOrganizationIDs []string `json:"custodianOrganizationIds"`
}

// Approve handles POST /Consent/{id}/$approve, the fixed mutation path the
// PCM-UI calls into (spec §6 "PCM-UI and DS-GW stubs", §9 "proposed->active
// (UI approval, adds CST actors)"). Restricted to the PCM admin per I4.
func (s *Server) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())
	if !caller.Admin {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("only the PCM admin may approve a Consent"))
		return
	}

	c, err := s.Store.GetConsent(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	if c.Status != fhir.ConsentProposed {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("Consent/"+id+" is not in status proposed"))
		return
	}

	var req approveConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "malformed approval body")
		return
	}

	custodians, unresolved, wrongType := s.custodianActors(req.CustodianOrganizationIDs)
	if unresolved != "" {
		httpmw.WriteOperationOutcome(w, http.StatusBadRequest, "error", "invalid", "custodian organization "+unresolved+" does not resolve")
		return
	}
	if wrongType != "" {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("custodian organization "+wrongType+" is not of type source"))
		return
	}

	updated := *c
	updated.Status = fhir.ConsentActive
	updated.Actor = append(append([]store.ConsentActor{}, c.Actor...), custodians...)
	s.Store.PutConsent(&updated)
	writeJSON(w, http.StatusOK, &updated)
}

// custodianActors resolves each candidate custodian id to an Organization of
// type source (invariant I2: "every CST actor added via $approve resolves to
// an Organization of type source"), returning the offending id in unresolved
// or wrongType if any candidate fails that check.
func (s *Server) custodianActors(orgIDs []string) (actors []store.ConsentActor, unresolved, wrongType string) {
	out := make([]store.ConsentActor, 0, len(orgIDs))
	for _, id := range orgIDs {
		org, err := s.Store.GetOrganization(id)
		if err != nil {
			return nil, id, ""
		}
		if !org.IsType(fhir.OrgTypeSource) {
			return nil, "", id
		}
		out = append(out, store.ConsentActor{Role: fhir.ActorRoleCST, Reference: fhir.Reference{Reference: "Organization/" + id}})
	}
	return out, "", ""
}

// Reject handles POST /Consent/{id}/$reject (spec §9 "proposed->rejected
// (UI)"). Restricted to the PCM admin per I4.
func (s *Server) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := callerFrom(r.Context())
	if !caller.Admin {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("only the PCM admin may reject a Consent"))
		return
	}

	c, err := s.Store.GetConsent(id)
	if err != nil {
		httpmw.WriteOperationOutcomeFromErr(w, err)
		return
	}
	if c.Status != fhir.ConsentProposed {
		httpmw.WriteOperationOutcomeFromErr(w, errtypes.Forbidden("Consent/"+id+" is not in status proposed"))
		return
	}

	updated := *c
	updated.Status = fhir.ConsentRejected
	s.Store.PutConsent(&updated)
	writeJSON(w, http.StatusOK, &updated)
}
