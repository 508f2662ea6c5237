// Package seed builds the bootstrap resource graph every daemon starts
// from (spec §6 "Persistence: None beyond process memory; all state is
// rebuilt from a seeded bootstrap set at start"). The concrete
// organizations, endpoints and service named here mirror the scenario
// walked through in spec §8 ("Concrete scenarios").
package seed

import (
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/store"
)

// ClientCerts maps a registered client_id to its PEM-encoded certificate,
// supplied by the operator's TOML config (certificates are not baked into
// source).
type ClientCerts map[string][]byte

// Bootstrap populates st with the fixed PCM organization, the scenario's
// service-provider and data-source organizations, a HealthcareService
// catalog entry, and the Client registry built from certs.
func Bootstrap(st *store.Store, certs ClientCerts) {
	pcm := &store.Organization{
		ID:     "org-pcm",
		Active: true,
		Name:   "Patient Consent Manager",
		Type:   []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypePCM}}}},
	}
	st.PutOrganization(pcm)

	sp := &store.Organization{
		ID:     "org-sp",
		Active: true,
		Name:   "Example Service Provider",
		Type:   []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypeServiceProvider}}}},
	}
	st.PutOrganization(sp)

	hospitalB := &store.Organization{
		ID:     "org-hospital-b-sp",
		Active: true,
		Name:   "Hospital B",
		Type:   []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypeServiceProvider}}}},
	}
	st.PutOrganization(hospitalB)

	vaccineRepo := &store.Organization{
		ID:       "org-vaccine-repo",
		Active:   true,
		Name:     "National Vaccine Repository",
		Type:     []fhir.CodeableConcept{{Coding: []fhir.Coding{{System: fhir.SystemOrgType, Code: fhir.OrgTypeSource}}}},
		Endpoint: []fhir.Reference{{Reference: "Endpoint/ep-vaccine-repo"}},
	}
	st.PutOrganization(vaccineRepo)

	st.PutEndpoint(&store.Endpoint{
		ID:                   "ep-vaccine-repo",
		Address:              "https://ds-gw:8080/fhir",
		ManagingOrganization: fhir.Reference{Reference: "Organization/org-vaccine-repo"},
	})

	st.PutHealthcareService(&store.HealthcareService{
		ID:         "service-1",
		Meta:       fhir.Meta{Tag: []fhir.Coding{{System: fhir.SystemMetaTag, Code: fhir.MetaTagCatalog}}},
		Active:     true,
		Name:       "Vaccination record sharing",
		Identifier: []fhir.Identifier{{System: fhir.SystemHealthcareServiceCatalogID, Value: "catalog-service-1"}},
	})

	for clientID, certPEM := range certs {
		orgID := clientOrganization(clientID)
		st.PutClient(&store.Client{
			ClientID:       clientID,
			CertPEM:        certPEM,
			OrganizationID: orgID,
		})
	}
}

// clientOrganization derives a seeded client's owning organization from a
// fixed naming convention ("client-org-sp" -> "org-sp"), used only by this
// package's own bootstrap data.
func clientOrganization(clientID string) string {
	const prefix = "client-"
	if len(clientID) > len(prefix) && clientID[:len(prefix)] == prefix {
		return clientID[len(prefix):]
	}
	return clientID
}
