package rs

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/store"
	"github.com/stretchr/testify/require"
)

func seedConsentScenario(h *rsHarness) {
	h.st.PutOrganization(&store.Organization{ID: "org-pcm", Active: true, Type: []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypePCM}}}}})
	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	h.st.PutOrganization(&store.Organization{ID: "org-other-sp", Active: true})
	h.st.PutOrganization(&store.Organization{ID: "org-vaccine-repo", Active: true, Type: []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypeSource}}}}})

	h.st.PutConsent(&store.Consent{
		ID:        "consent-sp",
		Status:    fhir.ConsentActive,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "1"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
			{Role: fhir.ActorRoleCST, Reference: fhir.Reference{Reference: "Organization/org-vaccine-repo"}},
		},
	})
	h.st.PutConsent(&store.Consent{
		ID:        "consent-other",
		Status:    fhir.ConsentActive,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "2"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-other-sp"}},
		},
	})
}

// TestSearchConsents_NonAdminSeesOnlyOwnActorConsents exercises T4: a
// non-admin's search Bundle contains no Consent where the caller is not an
// actor.
func TestSearchConsents_NonAdminSeesOnlyOwnActorConsents(t *testing.T) {
	h := newRSHarness(t)
	seedConsentScenario(h)
	bearer := h.bearerFor("org-sp")

	resp := h.do(http.MethodGet, "/Consent", bearer, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bundle store.Bundle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bundle))
	require.Equal(t, 1, bundle.Total)

	raw, err := json.Marshal(bundle.Entry)
	require.NoError(t, err)
	require.Contains(t, string(raw), "consent-sp")
	require.NotContains(t, string(raw), "consent-other")
}

// TestSearchConsents_AdminSeesAll exercises the admin branch of the same
// authorization rule.
func TestSearchConsents_AdminSeesAll(t *testing.T) {
	h := newRSHarness(t)
	seedConsentScenario(h)
	bearer := h.bearerFor("org-pcm")

	resp := h.do(http.MethodGet, "/Consent", bearer, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bundle store.Bundle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bundle))
	require.Equal(t, 2, bundle.Total)
}

// TestGetConsent_NonPartyGets404 exercises the spec's explicit choice of
// 404 over 403 for Consent reads by a non-party, to avoid existence
// disclosure.
func TestGetConsent_NonPartyGets404(t *testing.T) {
	h := newRSHarness(t)
	seedConsentScenario(h)
	bearer := h.bearerFor("org-other-sp")

	resp := h.do(http.MethodGet, "/Consent/consent-sp", bearer, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestUpdateConsent_RequesterMayOnlyDeactivate exercises T5: for an active
// consent, the only non-admin transition accepted is to inactive, by the
// IRCP actor, and only that field may change.
func TestUpdateConsent_RequesterMayOnlyDeactivate(t *testing.T) {
	h := newRSHarness(t)
	seedConsentScenario(h)

	t.Run("requester deactivating succeeds", func(t *testing.T) {
		h := newRSHarness(t)
		seedConsentScenario(h)
		bearer := h.bearerFor("org-sp")
		body := strings.NewReader(`{"id":"consent-sp","status":"inactive","patientIdentifier":{"system":"` + fhir.SystemPatientID + `","value":"1"},` +
			`"actor":[{"role":"` + fhir.ActorRoleIRCP + `","reference":{"reference":"Organization/org-sp"}},` +
			`{"role":"` + fhir.ActorRoleCST + `","reference":{"reference":"Organization/org-vaccine-repo"}}],"scope":{}}`)
		resp := h.do(http.MethodPut, "/Consent/consent-sp", bearer, body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		c, err := h.st.GetConsent("consent-sp")
		require.NoError(t, err)
		require.Equal(t, fhir.ConsentInactive, c.Status)
	})

	t.Run("non-party update forbidden", func(t *testing.T) {
		h := newRSHarness(t)
		seedConsentScenario(h)
		bearer := h.bearerFor("org-other-sp")
		body := strings.NewReader(`{"id":"consent-sp","status":"inactive","patientIdentifier":{"system":"` + fhir.SystemPatientID + `","value":"1"},"scope":{}}`)
		resp := h.do(http.MethodPut, "/Consent/consent-sp", bearer, body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("requester changing any other field forbidden", func(t *testing.T) {
		h := newRSHarness(t)
		seedConsentScenario(h)
		bearer := h.bearerFor("org-sp")
		body := strings.NewReader(`{"id":"consent-sp","status":"active","patientIdentifier":{"system":"` + fhir.SystemPatientID + `","value":"999"},"scope":{}}`)
		resp := h.do(http.MethodPut, "/Consent/consent-sp", bearer, body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

// TestConsentApproveAddsCustodianActor exercises the proposed->active
// transition the PCM-UI drives, adding CST actors (spec §9 state machine).
func TestConsentApproveAddsCustodianActor(t *testing.T) {
	h := newRSHarness(t)
	seedConsentScenario(h)
	h.st.PutConsent(&store.Consent{
		ID:        "consent-proposed",
		Status:    fhir.ConsentProposed,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "3"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
		},
	})

	admin := h.bearerFor("org-pcm")
	resp := h.do(http.MethodPost, "/Consent/consent-proposed/$approve", admin,
		strings.NewReader(`{"custodianOrganizationIds":["org-vaccine-repo"]}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c, err := h.st.GetConsent("consent-proposed")
	require.NoError(t, err)
	require.Equal(t, fhir.ConsentActive, c.Status)
	require.True(t, c.HasActorOrg("org-vaccine-repo"))
	require.Len(t, c.ActorsWithRole(fhir.ActorRoleCST), 1)
}
