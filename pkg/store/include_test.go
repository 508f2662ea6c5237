package store

import (
	"testing"

	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/stretchr/testify/require"
)

func TestIncludeOrganizationGraph_Endpoint(t *testing.T) {
	st := New()
	org := &Organization{ID: "org-1", Endpoint: []fhir.Reference{{Reference: "Endpoint/ep-1"}}}
	st.PutOrganization(org)
	st.PutEndpoint(&Endpoint{ID: "ep-1", Address: "https://ds.example.org/fhir"})

	entries := st.IncludeOrganizationGraph([]*Organization{org}, true, false, false)
	require.Len(t, entries, 1)
	ep, ok := entries[0].Resource.(*Endpoint)
	require.True(t, ok)
	require.Equal(t, "ep-1", ep.ID)
}

func TestIncludeOrganizationGraph_PartOfIterateBoundedDepth(t *testing.T) {
	st := New()
	// child -> parent -> grandparent -> great-grandparent (depth 3, beyond
	// the spec's max depth of 2).
	st.PutOrganization(&Organization{ID: "org-ggp"})
	st.PutOrganization(&Organization{ID: "org-gp", PartOf: &fhir.Reference{Reference: "Organization/org-ggp"}})
	st.PutOrganization(&Organization{ID: "org-parent", PartOf: &fhir.Reference{Reference: "Organization/org-gp"}})
	child := &Organization{ID: "org-child", PartOf: &fhir.Reference{Reference: "Organization/org-parent"}}
	st.PutOrganization(child)

	entries := st.IncludeOrganizationGraph([]*Organization{child}, false, true, true)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.Resource.(*Organization).ID)
	}
	require.Contains(t, ids, "org-parent")
	require.Contains(t, ids, "org-gp")
	require.NotContains(t, ids, "org-ggp", "BFS must stop at max depth 2 and never reach the great-grandparent")
}

func TestIncludeConsentActors_DeduplicatesByOrganization(t *testing.T) {
	st := New()
	st.PutOrganization(&Organization{ID: "org-sp"})
	st.PutOrganization(&Organization{ID: "org-ds"})

	consents := []*Consent{
		{
			ID: "consent-1",
			Actor: []ConsentActor{
				{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
				{Role: fhir.ActorRoleCST, Reference: fhir.Reference{Reference: "Organization/org-ds"}},
			},
		},
		{
			ID: "consent-2",
			Actor: []ConsentActor{
				{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
			},
		},
	}

	entries := st.IncludeConsentActors(consents)
	require.Len(t, entries, 2, "org-sp referenced twice must only be included once")
}
