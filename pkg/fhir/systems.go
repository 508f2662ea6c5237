package fhir

// Fixed code systems, extension URLs and scope strings from spec §6. These
// are wire contract constants, not configuration: every component that
// speaks the PCM's FHIR-style protocol must agree on them bit for bit.
const (
	// SystemApplicableCertificates is the extension carrying a stored
	// mTLS thumbprint list on Organization/Endpoint.
	SystemApplicableCertificates = "http://pcm.fhir.health.gov.il/StructureDefinition/ext-applicable-certificates"

	// SystemConsentID is the Consent business identifier system.
	SystemConsentID = "http://pcm.fhir.health.gov.il/identifier/pcm-consent-id"

	// SystemPatientID is the patient identifier system carried on
	// Consent.patient.identifier and in the token's patient claim.
	SystemPatientID = "http://fhir.health.gov.il/identifier/il-national-id"

	// SystemHealthcareServiceCatalogID is the catalog identifier system
	// for HealthcareService resources tagged "catalog".
	SystemHealthcareServiceCatalogID = "http://pcm.fhir.health.gov.il/identifier/pcm-healthcareservice-catalog-id"

	// SystemOrgType is the code system for Organization.type values.
	SystemOrgType = "http://fhir.health.gov.il/cs/pcm-org-type"

	// ExtensionPCMService links a Consent to the HealthcareService it
	// was requested against.
	ExtensionPCMService = "http://pcm.fhir.health.gov.il/StructureDefinition/ext-pcm-service"

	// ExtensionBasedOnCanonical links an "instance" HealthcareService to
	// its "catalog" counterpart.
	ExtensionBasedOnCanonical = "http://pcm.fhir.health.gov.il/StructureDefinition/ext-based-on-canonical-healthcareservice"

	// SystemMetaTag is the meta-tag system distinguishing "catalog" from
	// "instance" HealthcareService resources.
	SystemMetaTag = "http://pcm.fhir.health.gov.il/cs/pcm-meta-tag"

	// ExtensionThumbprintURL is the nested extension url under
	// SystemApplicableCertificates carrying each thumbprint's valueString.
	ExtensionThumbprintURL = "thumbprint"
)

// Organization.type codes (SystemOrgType).
const (
	OrgTypeParentOrg        = "parent-org"
	OrgTypeServiceProvider  = "service-provider"
	OrgTypeSource           = "source"
	OrgTypePCM              = "pcm"
)

// HealthcareService meta-tag codes (SystemMetaTag).
const (
	MetaTagCatalog  = "catalog"
	MetaTagInstance = "instance"
)

// Consent actor role codes.
const (
	ActorRoleIRCP = "IRCP" // Information Recipient (requestor, an SP)
	ActorRoleCST  = "CST"  // Custodian (a Data Source organization)
)

// Consent lifecycle states.
const (
	ConsentProposed = "proposed"
	ConsentActive   = "active"
	ConsentInactive = "inactive"
	ConsentRejected = "rejected"
)

// VerificationResultValidated is VerificationResult's default status
// (spec §3: "VerificationResult... default status validated").
const VerificationResultValidated = "validated"

// ScopeDSData is the fixed scope string overridden onto every B2B token
// (spec §6). It is intentionally not parameterized: the scope names exactly
// the Observation/laboratoryTests bucket the DS Resource Server serves.
const ScopeDSData = "patient/Observation.rs?_security=http://fhir.health.gov.il/cs/hdp-information-buckets|laboratoryTests&date=ge2024-01-01"

// ScopeRSDefault is the default scope for non-B2B PCM-RS access.
const ScopeRSDefault = "system/*.cruds"

// ScopeIntrospection is the scope a PEP's own access token must carry to
// call POST /introspect.
const ScopeIntrospection = "introspection"
