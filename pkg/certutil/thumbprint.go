// Package certutil computes and compares the mTLS/holder-of-key
// certificate thumbprints used throughout the AS, PEP and RS (spec §6
// "Thumbprint format": base64url, no padding, SHA-256 of the DER-encoded
// certificate).
package certutil

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	"github.com/pkg/errors"
)

// Thumbprint returns the base64url (no padding) SHA-256 digest of a
// certificate's DER encoding — the x5t#S256 value (spec §6).
func Thumbprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ParsePEM parses the first certificate found in a PEM block.
func ParsePEM(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("certutil: no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "certutil: error parsing certificate")
	}
	return cert, nil
}

// ThumbprintFromPEM is a convenience wrapper combining ParsePEM and
// Thumbprint, used when validating a registered client certificate (spec
// §4.1 step 8).
func ThumbprintFromPEM(pemBytes []byte) (string, error) {
	cert, err := ParsePEM(pemBytes)
	if err != nil {
		return "", err
	}
	return Thumbprint(cert), nil
}
