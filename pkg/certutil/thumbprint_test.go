package certutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func generateTestCertPEM(t *testing.T, serial int64) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "test-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestThumbprintFromPEM_IsStableAndURLSafe(t *testing.T) {
	certPEM := generateTestCertPEM(t, 1)

	thumbprint, err := ThumbprintFromPEM(certPEM)
	require.NoError(t, err)
	require.NotEmpty(t, thumbprint)

	// base64url with no padding must not contain '+', '/' or '='.
	require.NotContains(t, thumbprint, "+")
	require.NotContains(t, thumbprint, "/")
	require.NotContains(t, thumbprint, "=")

	again, err := ThumbprintFromPEM(certPEM)
	require.NoError(t, err)
	require.Equal(t, thumbprint, again, "thumbprint must be deterministic for the same certificate")
}

func TestThumbprint_DiffersAcrossCertificates(t *testing.T) {
	a := generateTestCertPEM(t, 1)
	b := generateTestCertPEM(t, 2)

	ta, err := ThumbprintFromPEM(a)
	require.NoError(t, err)
	tb, err := ThumbprintFromPEM(b)
	require.NoError(t, err)

	require.NotEqual(t, ta, tb)
}

func TestParsePEM_RejectsGarbage(t *testing.T) {
	_, err := ParsePEM([]byte("not a pem block"))
	require.Error(t, err)
}

func TestDecodeGatewayHeader_RoundTrips(t *testing.T) {
	certPEM := generateTestCertPEM(t, 3)
	escaped := url.QueryEscape(string(certPEM))

	cert, err := DecodeGatewayHeader(escaped)
	require.NoError(t, err)
	require.Equal(t, "test-client", cert.Subject.CommonName)
}

func TestDecodeGatewayHeader_RejectsEmpty(t *testing.T) {
	_, err := DecodeGatewayHeader("")
	require.Error(t, err)
}
