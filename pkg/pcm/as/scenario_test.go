package as

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/store"
	"github.com/stretchr/testify/require"
)

// oauthErrorBody mirrors httpmw's unexported error wire shape for decoding
// in tests.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type testIdentity struct {
	key     *rsa.PrivateKey
	certPEM []byte
}

func newTestIdentity(t *testing.T, caCert *x509.Certificate, caKey *rsa.PrivateKey, cn string) testIdentity {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	signer := caCert
	signerKey := caKey
	if signer == nil {
		signer = tmpl
		signerKey = key
		tmpl.IsCA = true
		tmpl.BasicConstraintsValid = true
		tmpl.KeyUsage |= x509.KeyUsageCertSign
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, signer, &key.PublicKey, signerKey)
	require.NoError(t, err)

	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	if signer == tmpl {
		signer = parsed
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return testIdentity{key: key, certPEM: certPEM}
}

func signAssertion(t *testing.T, issuer string, key *rsa.PrivateKey, audience string, b2b *b2bExtension) string {
	t.Helper()
	claims := &assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	claims.Extensions.B2B = b2b

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

// scenarioHarness stands up a Server behind a real mTLS httptest server and
// seeds the Organization/Endpoint/Consent/Client graph from spec §8's
// "happy path" scenario.
type scenarioHarness struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	tokenURL string

	caCert *x509.Certificate
	caKey  *rsa.PrivateKey

	st *store.Store
}

func newScenarioHarness(t *testing.T) *scenarioHarness {
	t.Helper()

	caIdentity := newTestIdentity(t, nil, nil, "test-ca")
	caCert, err := x509.ParseCertificate(derFromPEM(t, caIdentity.certPEM))
	require.NoError(t, err)

	st := store.New()

	srv := New(&Config{
		PublicHost: "pcm.test",
		TokenPath:  "/token",
	}, st)

	r := chi.NewRouter()
	srv.Mount(r)

	ts := httptest.NewUnstartedServer(r)

	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(caCert)
	ts.TLS = &tls.Config{
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  clientCAs,
	}
	ts.StartTLS()
	t.Cleanup(ts.Close)

	rootCAs := x509.NewCertPool()
	rootCAs.AddCert(ts.Certificate())

	h := &scenarioHarness{
		t:        t,
		server:   ts,
		tokenURL: ts.URL + "/token",
		caCert:   caCert,
		caKey:    caIdentity.key,
		st:       st,
	}
	h.client = &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: rootCAs}}}
	return h
}

func (h *scenarioHarness) newClient(clientCertPEM, clientKeyPEM []byte, rootCAs *x509.CertPool) *http.Client {
	cert, err := tls.X509KeyPair(clientCertPEM, clientKeyPEM)
	require.NoError(h.t, err)
	return &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{
		RootCAs:      rootCAs,
		Certificates: []tls.Certificate{cert},
	}}}
}

func derFromPEM(t *testing.T, pemBytes []byte) []byte {
	t.Helper()
	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	return block.Bytes
}

func keyToPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// TestTokenIssuance_HappyPath exercises spec §8 scenario 1: SP requests a
// B2B token referencing an active consent naming the data-source endpoint
// as resource, and receives a token scoped to DS data with the expected
// fhirContext.
func TestTokenIssuance_HappyPath(t *testing.T) {
	h := newScenarioHarness(t)

	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	h.st.PutOrganization(&store.Organization{
		ID:       "org-vaccine-repo",
		Active:   true,
		Endpoint: []fhir.Reference{{Reference: "Endpoint/ep-vaccine-repo"}},
	})
	h.st.PutEndpoint(&store.Endpoint{
		ID:                   "ep-vaccine-repo",
		Address:              "https://ds-gw:8080/fhir",
		ManagingOrganization: fhir.Reference{Reference: "Organization/org-vaccine-repo"},
	})
	h.st.PutHealthcareService(&store.HealthcareService{
		ID:         "service-1",
		Meta:       fhir.Meta{Tag: []fhir.Coding{{System: fhir.SystemMetaTag, Code: fhir.MetaTagCatalog}}},
		Identifier: []fhir.Identifier{{System: fhir.SystemHealthcareServiceCatalogID, Value: "catalog-service-1"}},
	})
	h.st.PutConsent(&store.Consent{
		ID:        "consent-1",
		Status:    fhir.ConsentActive,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "99887766"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
			{Role: fhir.ActorRoleCST, Reference: fhir.Reference{Reference: "Organization/org-vaccine-repo"}},
		},
		PCMService: &fhir.Reference{Reference: "HealthcareService/service-1"},
	})

	spIdentity := newTestIdentity(t, h.caCert, h.caKey, "org-sp-client")
	h.st.PutClient(&store.Client{ClientID: "client-sp", CertPEM: spIdentity.certPEM, OrganizationID: "org-sp"})

	client := h.newClient(spIdentity.certPEM, keyToPEM(spIdentity.key), h.client.Transport.(*http.Transport).TLSClientConfig.RootCAs)

	assertion := signAssertion(t, "client-sp", spIdentity.key, "https://pcm.test/token", &b2bExtension{
		OrganizationID:   "https://pcm.test/Organization/org-sp",
		ConsentReference: []string{"Consent/consent-1"},
	})

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
		"resource":              {"https://ds-gw:8080/fhir"},
	}

	resp, err := client.PostForm(h.tokenURL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, fhir.ScopeDSData, body.Scope)

	rec, err := h.st.Tokens().Get(body.AccessToken, time.Now())
	require.NoError(t, err)
	require.Equal(t, "http://fhir.health.gov.il/identifier/il-national-id|99887766", rec.Patient)
	require.Equal(t, "https://ds-gw:8080/fhir", rec.Audience)

	var consentEntry, hsEntry bool
	for _, e := range rec.FhirContext {
		if e.Type == "Consent" {
			consentEntry = true
		}
		if e.Type == "HealthcareService" {
			hsEntry = true
			require.Equal(t, "catalog-service-1", e.Identifier.Value)
		}
	}
	require.True(t, consentEntry)
	require.True(t, hsEntry)
}

// TestTokenIssuance_CrossOrgDenial exercises spec §8 scenario 2: org-sp
// requests a token referencing a consent it is not an actor on.
func TestTokenIssuance_CrossOrgDenial(t *testing.T) {
	h := newScenarioHarness(t)

	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	h.st.PutOrganization(&store.Organization{ID: "org-hospital-b-sp", Active: true})
	h.st.PutConsent(&store.Consent{
		ID:        "consent-hb",
		Status:    fhir.ConsentActive,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "11223344"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-hospital-b-sp"}},
		},
	})

	spIdentity := newTestIdentity(t, h.caCert, h.caKey, "org-sp-client")
	h.st.PutClient(&store.Client{ClientID: "client-sp", CertPEM: spIdentity.certPEM, OrganizationID: "org-sp"})

	client := h.newClient(spIdentity.certPEM, keyToPEM(spIdentity.key), h.client.Transport.(*http.Transport).TLSClientConfig.RootCAs)

	assertion := signAssertion(t, "client-sp", spIdentity.key, "https://pcm.test/token", &b2bExtension{
		OrganizationID:   "https://pcm.test/Organization/org-sp",
		ConsentReference: []string{"Consent/consent-hb"},
	})

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
		"resource":              {"https://irrelevant.example/fhir"},
	}

	resp, err := client.PostForm(h.tokenURL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body oauthErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "access_denied", body.Error)
}

// TestTokenIssuance_ResourceMismatch exercises spec §8 scenario 3: a valid
// consent but a resource indicator that doesn't match any custodian
// endpoint.
func TestTokenIssuance_ResourceMismatch(t *testing.T) {
	h := newScenarioHarness(t)

	h.st.PutOrganization(&store.Organization{ID: "org-sp", Active: true})
	h.st.PutOrganization(&store.Organization{
		ID:       "org-vaccine-repo",
		Active:   true,
		Endpoint: []fhir.Reference{{Reference: "Endpoint/ep-vaccine-repo"}},
	})
	h.st.PutEndpoint(&store.Endpoint{
		ID:                   "ep-vaccine-repo",
		Address:              "https://ds-gw:8080/fhir",
		ManagingOrganization: fhir.Reference{Reference: "Organization/org-vaccine-repo"},
	})
	h.st.PutConsent(&store.Consent{
		ID:        "consent-1",
		Status:    fhir.ConsentActive,
		PatientID: fhir.Identifier{System: fhir.SystemPatientID, Value: "99887766"},
		Actor: []store.ConsentActor{
			{Role: fhir.ActorRoleIRCP, Reference: fhir.Reference{Reference: "Organization/org-sp"}},
			{Role: fhir.ActorRoleCST, Reference: fhir.Reference{Reference: "Organization/org-vaccine-repo"}},
		},
	})

	spIdentity := newTestIdentity(t, h.caCert, h.caKey, "org-sp-client")
	h.st.PutClient(&store.Client{ClientID: "client-sp", CertPEM: spIdentity.certPEM, OrganizationID: "org-sp"})

	client := h.newClient(spIdentity.certPEM, keyToPEM(spIdentity.key), h.client.Transport.(*http.Transport).TLSClientConfig.RootCAs)

	assertion := signAssertion(t, "client-sp", spIdentity.key, "https://pcm.test/token", &b2bExtension{
		OrganizationID:   "https://pcm.test/Organization/org-sp",
		ConsentReference: []string{"Consent/consent-1"},
	})

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
		"resource":              {"https://evil.example/fhir"},
	}

	resp, err := client.PostForm(h.tokenURL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body oauthErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "invalid_target", body.Error)
}
