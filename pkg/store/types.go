// Package store is the single logical, in-memory store shared by the PCM
// Authorization Server and Resource Server (spec §3, §5): Organization,
// Endpoint, HealthcareService, Consent, VerificationResult, the Client
// registry and the opaque access-token map. All state is rebuilt from a
// seeded bootstrap set at process start; nothing is persisted.
package store

import "github.com/hdxil/pcm-core/pkg/fhir"

// Organization is a PCM/SP/DS organization (spec §3 "Organization").
type Organization struct {
	ID                      string                `json:"id"`
	Active                  bool                  `json:"active"`
	Name                    string                `json:"name"`
	Type                    []fhir.CodeableConcept `json:"type,omitempty"`
	PartOf                  *fhir.Reference       `json:"partOf,omitempty"`
	Endpoint                []fhir.Reference      `json:"endpoint,omitempty"`
	ApplicableCertificates  []string              `json:"-"`
}

// IsType reports whether the organization carries the given org-type code.
func (o *Organization) IsType(code string) bool {
	for _, t := range o.Type {
		if t.HasCode(fhir.SystemOrgType, code) {
			return true
		}
	}
	return false
}

// Endpoint is a technical endpoint owned by an Organization (spec §3
// "Endpoint"). Address is the canonical audience string / resource
// indicator and must be unique across all endpoints.
type Endpoint struct {
	ID                     string   `json:"id"`
	Address                string   `json:"address"`
	ManagingOrganization   fhir.Reference `json:"managingOrganization"`
	ApplicableCertificates []string `json:"-"`
}

// HealthcareService is either a PCM-managed "catalog" template or an
// SP-owned "instance" linked to one (spec §3 "HealthcareService").
type HealthcareService struct {
	ID                 string           `json:"id"`
	Meta               fhir.Meta        `json:"meta"`
	Active             bool             `json:"active"`
	ProvidedBy         *fhir.Reference  `json:"providedBy,omitempty"`
	Category           []fhir.CodeableConcept `json:"category,omitempty"`
	Type               []fhir.CodeableConcept `json:"type,omitempty"`
	Name               string           `json:"name,omitempty"`
	Identifier         []fhir.Identifier `json:"identifier,omitempty"`
	BasedOnCanonical   *fhir.Reference  `json:"basedOnCanonical,omitempty"`
}

// IsCatalog reports whether this resource is tagged "catalog".
func (h *HealthcareService) IsCatalog() bool {
	return h.Meta.HasTag(fhir.SystemMetaTag, fhir.MetaTagCatalog)
}

// IsInstance reports whether this resource is tagged "instance".
func (h *HealthcareService) IsInstance() bool {
	return h.Meta.HasTag(fhir.SystemMetaTag, fhir.MetaTagInstance)
}

// CatalogIdentifier returns the catalog identifier value under the fixed
// system, if present.
func (h *HealthcareService) CatalogIdentifier() (string, bool) {
	for _, id := range h.Identifier {
		if id.System == fhir.SystemHealthcareServiceCatalogID {
			return id.Value, true
		}
	}
	return "", false
}

// ConsentActor is a single actor entry on a Consent's provision.actor list.
type ConsentActor struct {
	Role      string        `json:"role"`
	Reference fhir.Reference `json:"reference"`
}

// Consent is a patient's grant of access to one or more data custodians
// (spec §3 "Consent").
type Consent struct {
	ID             string           `json:"id"`
	Identifier     []fhir.Identifier `json:"identifier,omitempty"`
	Status         string           `json:"status"`
	PatientID      fhir.Identifier  `json:"patientIdentifier"`
	Actor          []ConsentActor   `json:"actor,omitempty"`
	Category       []fhir.CodeableConcept `json:"category,omitempty"`
	Scope          fhir.CodeableConcept   `json:"scope"`
	Purpose        []fhir.Coding    `json:"purpose,omitempty"`
	PCMService     *fhir.Reference  `json:"pcmService,omitempty"`
}

// ActorsWithRole returns every actor reference with the given role.
func (c *Consent) ActorsWithRole(role string) []fhir.Reference {
	var out []fhir.Reference
	for _, a := range c.Actor {
		if a.Role == role {
			out = append(out, a.Reference)
		}
	}
	return out
}

// HasActorOrg reports whether the given organization id appears as an actor
// in any role (spec I5, "actor binding").
func (c *Consent) HasActorOrg(orgID string) bool {
	for _, a := range c.Actor {
		if a.Reference.Type() == "Organization" && a.Reference.ID() == orgID {
			return true
		}
	}
	return false
}

// BusinessIdentifier returns the consent's business identifier under the
// fixed consent-id system, falling back to the logical id (spec §4.1 step 9).
func (c *Consent) BusinessIdentifier() fhir.Identifier {
	for _, id := range c.Identifier {
		if id.System == fhir.SystemConsentID {
			return id
		}
	}
	return fhir.Identifier{System: fhir.SystemConsentID, Value: c.ID}
}

// VerificationResultValidator is a single entry on VerificationResult.validator.
type VerificationResultValidator struct {
	Organization fhir.Reference `json:"organization"`
}

// VerificationResult attests that a consent or identity has been validated
// (spec §3 "VerificationResult").
type VerificationResult struct {
	ID        string                         `json:"id"`
	Status    string                         `json:"status"`
	Validator []VerificationResultValidator  `json:"validator,omitempty"`
	Target    []fhir.Reference               `json:"target,omitempty"`
}

// Client is a registered OAuth client (spec §3 "Client record"). Seeded at
// boot, never mutated through any API.
type Client struct {
	ClientID       string
	CertPEM        []byte
	OrganizationID string
	AllowedScopes  []string
}

// TokenRecord is an opaque access token's server-side state (spec §3
// "Opaque access token").
type TokenRecord struct {
	Token          string
	Sub            string
	OrganizationID string
	Scope          string
	Issuer         string
	Audience       string
	Patient        string
	FhirContext    []FhirContextEntry
	CnfX5tS256     string
	// MTLSThumbprint is the SHA-256 DER thumbprint of the mTLS peer cert
	// presented at issuance, kept alongside CnfX5tS256 for audit. A
	// mismatch only raises a warning unless the AS runs with
	// StrictHolderOfKey, in which case issuance is rejected (spec §9
	// design note).
	MTLSThumbprint string
	IssuedAt       int64
	ExpiresAt      int64
}

// FhirContextEntry is one {type, identifier} hint attached to a token
// (spec §3 "fhirContext").
type FhirContextEntry struct {
	Type       string          `json:"type"`
	Identifier fhir.Identifier `json:"identifier"`
}

// Bundle is a FHIR-style search result.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry wraps one resource plus its search mode.
type BundleEntry struct {
	Resource   interface{} `json:"resource"`
	SearchMode string      `json:"search_mode"` // "match" or "include"
}
