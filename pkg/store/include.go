package store

// Maximum depth of iterative reference-graph resolution, per spec §9: the
// Organization <-> Endpoint / Organization <-> partOf graph is a DAG and
// "_include:iterate expansion is a bounded BFS ... (max depth 2 in
// practice)".
const maxIncludeDepth = 2

// IncludeConsentActors resolves "Consent:actor" (spec §6 "_include values
// supported"): every Organization referenced by an actor on any of the
// matched consents, deduplicated by id.
func (s *Store) IncludeConsentActors(consents []*Consent) []BundleEntry {
	seen := map[string]bool{}
	var out []BundleEntry
	for _, c := range consents {
		for _, a := range c.Actor {
			if a.Reference.Type() != "Organization" {
				continue
			}
			id := a.Reference.ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			if o, err := s.GetOrganization(id); err == nil {
				out = append(out, BundleEntry{Resource: o, SearchMode: "include"})
			}
		}
	}
	return out
}

// IncludeOrganizationGraph resolves "Organization:endpoint" and
// "Organization:partof" (with optional :iterate) starting from the matched
// organizations, per spec §6 and §9's bounded-BFS design note.
func (s *Store) IncludeOrganizationGraph(orgs []*Organization, includeEndpoint, includePartOf, iterate bool) []BundleEntry {
	var out []BundleEntry
	seenOrg := map[string]bool{}
	seenEndpoint := map[string]bool{}
	for _, o := range orgs {
		seenOrg[o.ID] = true
	}

	frontier := orgs
	for depth := 0; depth < maxIncludeDepth; depth++ {
		var nextFrontier []*Organization

		for _, o := range frontier {
			if includeEndpoint {
				for _, ref := range o.Endpoint {
					id := ref.ID()
					if seenEndpoint[id] {
						continue
					}
					seenEndpoint[id] = true
					if e, err := s.GetEndpoint(id); err == nil {
						out = append(out, BundleEntry{Resource: e, SearchMode: "include"})
					}
				}
			}
			if includePartOf && o.PartOf != nil {
				id := o.PartOf.ID()
				if !seenOrg[id] {
					seenOrg[id] = true
					if parent, err := s.GetOrganization(id); err == nil {
						out = append(out, BundleEntry{Resource: parent, SearchMode: "include"})
						nextFrontier = append(nextFrontier, parent)
					}
				}
			}
		}

		if !iterate || len(nextFrontier) == 0 {
			break
		}
		frontier = nextFrontier
	}
	return out
}
