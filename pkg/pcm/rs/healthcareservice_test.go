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

// TestCreateHealthcareService_InstanceWithoutCanonicalAutoCreatesCatalog
// exercises T6: creating an instance HealthcareService without
// basedOnCanonical produces both a canonical (tagged catalog) and the
// instance (tagged instance), linked by the canonical extension.
func TestCreateHealthcareService_InstanceWithoutCanonicalAutoCreatesCatalog(t *testing.T) {
	h := newRSHarness(t)
	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	bearer := h.bearerFor("org-sp")

	resp := h.do(http.MethodPost, "/HealthcareService", bearer,
		strings.NewReader(`{"name":"Vaccination record sharing","active":true}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created store.HealthcareService
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	require.True(t, created.IsInstance())
	require.NotNil(t, created.ProvidedBy)
	require.Equal(t, "org-sp", created.ProvidedBy.ID())
	require.NotNil(t, created.BasedOnCanonical)

	canonical, err := h.st.GetHealthcareService(created.BasedOnCanonical.ID())
	require.NoError(t, err)
	require.True(t, canonical.IsCatalog())
	_, hasCatalogID := canonical.CatalogIdentifier()
	require.True(t, hasCatalogID)
}

// TestCreateHealthcareService_NonAdminCatalogTagIsStoredAsIs exercises the
// "non-admin creating a catalog-tagged instance -> stored as catalog"
// branch of spec §4.2.
func TestCreateHealthcareService_NonAdminCatalogTagIsStoredAsIs(t *testing.T) {
	h := newRSHarness(t)
	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	bearer := h.bearerFor("org-sp")

	resp := h.do(http.MethodPost, "/HealthcareService", bearer,
		strings.NewReader(`{"name":"Catalog template","meta":{"tag":[{"system":"`+fhir.SystemMetaTag+`","code":"`+fhir.MetaTagCatalog+`"}]}}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created store.HealthcareService
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.True(t, created.IsCatalog())
	require.Nil(t, created.ProvidedBy)
}

// TestUpdateHealthcareService_NonAdminCannotEditCatalog exercises "non-admin
// may not edit catalog resources (403)".
func TestUpdateHealthcareService_NonAdminCannotEditCatalog(t *testing.T) {
	h := newRSHarness(t)
	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	h.st.PutHealthcareService(&store.HealthcareService{
		ID:   "catalog-1",
		Meta: fhir.Meta{Tag: []fhir.Coding{{System: fhir.SystemMetaTag, Code: fhir.MetaTagCatalog}}},
		Name: "Catalog entry",
	})
	bearer := h.bearerFor("org-sp")

	resp := h.do(http.MethodPut, "/HealthcareService/catalog-1", bearer,
		strings.NewReader(`{"id":"catalog-1","name":"Renamed"}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
