// Package fhir holds the small set of FHIR-style primitive types the store
// and wire formats need (spec §3, §6). It is not a generated FHIR SDK: only
// the elements actually referenced by Organization, Endpoint,
// HealthcareService, Consent and VerificationResult are modeled, matching the
// spec's explicit "no FHIR conformance beyond the resources and search
// parameters enumerated" non-goal.
package fhir

// Coding represents a single code in a code system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a set of Codings plus an optional free-text rendering.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// HasCode reports whether the concept carries a coding with the given
// system and code.
func (c CodeableConcept) HasCode(system, code string) bool {
	for _, coding := range c.Coding {
		if coding.System == system && coding.Code == code {
			return true
		}
	}
	return false
}

// Identifier is a business identifier: a system/value pair.
type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Reference is a literal "Type/id" reference to another resource.
type Reference struct {
	Reference string `json:"reference"`
}

// Type returns the resource type portion of the reference ("Organization"
// in "Organization/org-1"), or "" if the reference is malformed.
func (r Reference) Type() string {
	t, _, ok := splitRef(r.Reference)
	if !ok {
		return ""
	}
	return t
}

// ID returns the id portion of the reference ("org-1" in
// "Organization/org-1"), or "" if the reference is malformed.
func (r Reference) ID() string {
	_, id, ok := splitRef(r.Reference)
	if !ok {
		return ""
	}
	return id
}

func splitRef(ref string) (typ, id string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}

// Extension is a generic FHIR extension: a url plus exactly one of the
// value fields the spec's extensions actually use.
type Extension struct {
	URL         string      `json:"url"`
	ValueString string      `json:"valueString,omitempty"`
	Extension   []Extension `json:"extension,omitempty"`
}

// NestedString returns the valueString of the first child extension whose
// url matches, used for the applicableCertificates thumbprint list
// (spec §6: {url: "thumbprint", valueString}).
func NestedString(exts []Extension, url string) (string, bool) {
	for _, e := range exts {
		if e.URL == url {
			return e.ValueString, true
		}
	}
	return "", false
}

// Meta carries the resource's meta-tags (used for the
// catalog/instance HealthcareService distinction, spec §3).
type Meta struct {
	Tag []Coding `json:"tag,omitempty"`
}

// HasTag reports whether the meta carries a tag with the given system/code.
func (m *Meta) HasTag(system, code string) bool {
	if m == nil {
		return false
	}
	for _, t := range m.Tag {
		if t.System == system && t.Code == code {
			return true
		}
	}
	return false
}
