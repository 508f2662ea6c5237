package store

import (
	"net/url"
	"strings"

	"github.com/hdxil/pcm-core/pkg/fhir"
)

// parseIdentifierParam splits a "system|value" or bare "value" search
// parameter value, per spec §6 "Identifier value format".
func parseIdentifierParam(raw string) (system, value string) {
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return "", raw
}

func matchIdentifier(ids []fhir.Identifier, raw string) bool {
	system, value := parseIdentifierParam(raw)
	for _, id := range ids {
		if value != "" && id.Value != value {
			continue
		}
		if system != "" && id.System != system {
			continue
		}
		return true
	}
	return false
}

// SearchOrganizations implements the Organization search parameters from
// spec §6: type, name, identifier. Unknown parameters are ignored.
func (s *Store) SearchOrganizations(q url.Values) []*Organization {
	all := s.ListOrganizations()
	out := all[:0:0]
	for _, o := range all {
		if v := q.Get("type"); v != "" && !hasOrgTypeCode(o, v) {
			continue
		}
		if v := q.Get("name"); v != "" && !strings.EqualFold(o.Name, v) {
			continue
		}
		if v := q.Get("identifier"); v != "" {
			// Organization carries no business identifier in this store;
			// "identifier" searches match on id for parity with other
			// resources' identifier search semantics.
			_, value := parseIdentifierParam(v)
			if value != o.ID {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

func hasOrgTypeCode(o *Organization, code string) bool {
	return o.IsType(code)
}

// SearchEndpoints implements the Endpoint search parameters from spec §6:
// thumbprint.
func (s *Store) SearchEndpoints(q url.Values) []*Endpoint {
	all := s.ListEndpoints()
	out := all[:0:0]
	for _, e := range all {
		if v := q.Get("thumbprint"); v != "" && !containsString(e.ApplicableCertificates, v) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// SearchHealthcareServices implements the HealthcareService search
// parameters from spec §6: providedBy, category, type, identifier, name,
// active.
func (s *Store) SearchHealthcareServices(q url.Values) []*HealthcareService {
	all := s.ListHealthcareServices()
	out := all[:0:0]
	for _, h := range all {
		if v := q.Get("providedBy"); v != "" {
			if h.ProvidedBy == nil || h.ProvidedBy.Reference != v {
				continue
			}
		}
		if v := q.Get("category"); v != "" && !anyCodeableConceptCode(h.Category, v) {
			continue
		}
		if v := q.Get("type"); v != "" && !anyCodeableConceptCode(h.Type, v) {
			continue
		}
		if v := q.Get("identifier"); v != "" && !matchIdentifier(h.Identifier, v) {
			continue
		}
		if v := q.Get("name"); v != "" && !strings.EqualFold(h.Name, v) {
			continue
		}
		if v := q.Get("active"); v != "" {
			want := v == "true"
			if h.Active != want {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

func anyCodeableConceptCode(ccs []fhir.CodeableConcept, code string) bool {
	system, value := parseIdentifierParam(code)
	for _, cc := range ccs {
		for _, c := range cc.Coding {
			if value != "" && c.Code != value {
				continue
			}
			if system != "" && c.System != system {
				continue
			}
			return true
		}
	}
	return false
}

// SearchConsents implements the Consent search parameters from spec §6:
// _id, status, patient, patient.identifier, pcm-service.
func (s *Store) SearchConsents(q url.Values) []*Consent {
	all := s.ListConsents()
	out := all[:0:0]
	for _, c := range all {
		if v := q.Get("_id"); v != "" && c.ID != v {
			continue
		}
		if v := q.Get("status"); v != "" && c.Status != v {
			continue
		}
		if v := q.Get("patient"); v != "" && !matchIdentifier([]fhir.Identifier{c.PatientID}, v) {
			continue
		}
		if v := q.Get("patient.identifier"); v != "" && !matchIdentifier([]fhir.Identifier{c.PatientID}, v) {
			continue
		}
		if v := q.Get("pcm-service"); v != "" {
			if c.PCMService == nil || c.PCMService.Reference != v {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
