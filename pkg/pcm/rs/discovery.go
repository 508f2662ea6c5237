package rs

import (
	"net/http"

	"github.com/hdxil/pcm-core/pkg/fhir"
)

type smartConfiguration struct {
	Issuer                string   `json:"issuer"`
	TokenEndpoint         string   `json:"token_endpoint"`
	IntrospectionEndpoint string   `json:"introspection_endpoint"`
	GrantTypesSupported   []string `json:"grant_types_supported"`
	ScopesSupported       []string `json:"scopes_supported"`
	Capabilities          []string `json:"capabilities"`
}

// SmartConfiguration handles the unauthenticated GET
// /.well-known/smart-configuration (spec §4.2 "Discovery endpoints"; §4.3
// step 3 names this the document the PEP discovers the introspection
// endpoint from).
func (s *Server) SmartConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, smartConfiguration{
		Issuer:                s.Config.BaseURL,
		TokenEndpoint:         s.Config.TokenEndpoint,
		IntrospectionEndpoint: s.Config.IntrospectionEndpoint,
		GrantTypesSupported:   []string{"client_credentials"},
		ScopesSupported:       []string{fhir.ScopeRSDefault, fhir.ScopeDSData, fhir.ScopeIntrospection},
		Capabilities:          []string{"client-confidential-asymmetric", "context-banner"},
	})
}

type capabilityStatement struct {
	ResourceType string                `json:"resourceType"`
	Status       string                `json:"status"`
	Kind         string                `json:"kind"`
	FhirVersion  string                `json:"fhirVersion"`
	Format       []string              `json:"format"`
	Rest         []capabilityStatementRest `json:"rest"`
}

type capabilityStatementRest struct {
	Mode     string                        `json:"mode"`
	Resource []capabilityStatementResource `json:"resource"`
}

type capabilityStatementResource struct {
	Type string `json:"type"`
}

// Metadata handles the unauthenticated GET /metadata (CapabilityStatement).
func (s *Server) Metadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, capabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Kind:         "instance",
		FhirVersion:  "4.0.1",
		Format:       []string{"application/fhir+json"},
		Rest: []capabilityStatementRest{{
			Mode: "server",
			Resource: []capabilityStatementResource{
				{Type: "Organization"},
				{Type: "Endpoint"},
				{Type: "HealthcareService"},
				{Type: "Consent"},
				{Type: "VerificationResult"},
			},
		}},
	})
}
