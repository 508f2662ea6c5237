package rs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hdxil/pcm-core/pkg/store"
	"github.com/stretchr/testify/require"
)

// rsHarness stands up a Server behind a real mTLS httptest server, the
// same style as pkg/pcm/as's scenario harness, so RS authorization tests
// exercise the real requireAuth middleware rather than calling handlers
// directly.
type rsHarness struct {
	t      *testing.T
	st     *store.Store
	server *httptest.Server
	client *http.Client
}

func newRSHarness(t *testing.T) *rsHarness {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	clientTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano() + 1),
		Subject:      pkix.Name{CommonName: "test-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	clientDER, err := x509.CreateCertificate(rand.Reader, clientTmpl, caCert, &clientKey.PublicKey, caKey)
	require.NoError(t, err)

	st := store.New()
	srv := New(&Config{BaseURL: "https://pcm.test/r4"}, st)

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

	clientCert := tls.Certificate{
		Certificate: [][]byte{clientDER},
		PrivateKey:  clientKey,
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{
		RootCAs:      rootCAs,
		Certificates: []tls.Certificate{clientCert},
	}}}

	return &rsHarness{t: t, st: st, server: ts, client: client}
}

// bearerFor mints a token record directly in the store for orgID and
// returns the opaque token string, standing in for a real /token round
// trip (already covered by pkg/pcm/as's scenario tests).
func (h *rsHarness) bearerFor(orgID string) string {
	h.t.Helper()
	tok := "test-bearer-" + orgID
	h.st.Tokens().Insert(&store.TokenRecord{
		Token:          tok,
		OrganizationID: orgID,
		Scope:          "system/*.cruds",
		IssuedAt:       time.Now().Unix(),
		ExpiresAt:      time.Now().Add(time.Minute).Unix(),
	})
	return tok
}

func (h *rsHarness) do(method, path, bearer string, body io.Reader) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	require.NoError(h.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	return resp
}
