package as

import (
	"crypto/rsa"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hdxil/pcm-core/pkg/certutil"
	"github.com/hdxil/pcm-core/pkg/errtypes"
)

// b2bExtension is the structured "extensions.hl7-b2b" claim a client
// assertion may carry (spec §4.1 step 7, GLOSSARY "B2B extension").
type b2bExtension struct {
	OrganizationID   string   `json:"organization_id"`
	PurposeOfUse     string   `json:"purpose_of_use"`
	ConsentReference []string `json:"consent_reference"`
}

// assertionClaims is the decoded shape of a client_assertion JWT.
type assertionClaims struct {
	jwt.RegisteredClaims
	Extensions struct {
		B2B *b2bExtension `json:"hl7-b2b,omitempty"`
	} `json:"extensions"`
}

// parseAssertionUnverified decodes the assertion without checking its
// signature, to recover iss/sub for the client lookup (spec §4.1 step 4:
// "Must parse; sub and iss required and equal").
func parseAssertionUnverified(raw string) (*assertionClaims, error) {
	claims := &assertionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, errtypes.InvalidClient("malformed client assertion: " + err.Error())
	}
	if claims.Subject == "" || len(claims.Issuer) == 0 {
		return nil, errtypes.InvalidClient("assertion missing sub/iss")
	}
	if claims.Subject != claims.Issuer {
		return nil, errtypes.InvalidClient("assertion sub/iss mismatch")
	}
	return claims, nil
}

// verifyAssertion re-parses raw with signature verification against the
// client's registered certificate's public key, checking alg=RS256 and
// aud membership (spec §4.1 step 6).
func verifyAssertion(raw string, clientCertPEM []byte, acceptedAudiences []string) (*assertionClaims, error) {
	cert, err := certutil.ParsePEM(clientCertPEM)
	if err != nil {
		return nil, errtypes.InvalidClient("error reading client certificate: " + err.Error())
	}
	pubKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errtypes.InvalidClient("client certificate does not carry an RSA public key")
	}

	claims := &assertionClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok || t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, errtypes.InvalidClient("unexpected assertion signing algorithm")
		}
		return pubKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errtypes.InvalidClient("assertion signature verification failed")
	}

	if !audienceAccepted(claims.Audience, acceptedAudiences) {
		return nil, errtypes.InvalidClient("assertion audience not accepted")
	}

	return claims, nil
}

func audienceAccepted(aud jwt.ClaimStrings, accepted []string) bool {
	for _, a := range aud {
		for _, want := range accepted {
			if a == want {
				return true
			}
		}
	}
	return false
}

// organizationIDFromURL extracts the trailing path segment of a
// organization_id URL-suffix claim (spec §4.1 step 7: "organization_id
// (URL-suffix)").
func organizationIDFromURL(raw string) string {
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
