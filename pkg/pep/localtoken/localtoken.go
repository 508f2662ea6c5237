// Package localtoken mints and verifies the PEP's internal, short-lived
// local JWT — the identity the gateway rewrites onto the upstream request
// after a successful /auth-check (spec §4.3 step 6, §4.4).
package localtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hdxil/pcm-core/pkg/errtypes"
)

// TTL is the fixed lifetime of a minted local token ("exp = iat + 30s").
const TTL = 30 * time.Second

// FhirContextEntry mirrors the {type, identifier} shape carried through
// from PCM introspection (spec §3 "fhirContext").
type FhirContextEntry struct {
	Type       string `json:"type"`
	Identifier struct {
		System string `json:"system,omitempty"`
		Value  string `json:"value,omitempty"`
	} `json:"identifier"`
}

// Claims is the local JWT's payload (spec §4.3 step 6: "sub = client_id,
// scope, iss, aud, jti, iat copied through, plus patient = localSubject,
// fhirContext, cnf").
type Claims struct {
	jwt.RegisteredClaims
	Scope       string             `json:"scope,omitempty"`
	Patient     string             `json:"patient"`
	FhirContext []FhirContextEntry `json:"fhirContext,omitempty"`
	Cnf         map[string]string  `json:"cnf,omitempty"`
}

// MintInput carries the introspection fields the local token copies
// through or derives from.
type MintInput struct {
	ClientID    string
	Scope       string
	Issuer      string
	Audience    string
	Jti         string
	IssuedAt    time.Time
	PatientRaw  string // "system|value" as returned by introspection
	FhirContext []FhirContextEntry
	Cnf         map[string]string
}

// Mint signs a local JWT with secret, translating PatientRaw into the
// hashed local subject (spec §4.3 step 6, T7).
func Mint(secret []byte, in MintInput) (string, error) {
	localSubject, err := LocalSubject(in.PatientRaw)
	if err != nil {
		return "", err
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.ClientID,
			Issuer:    in.Issuer,
			Audience:  jwt.ClaimStrings{in.Audience},
			ID:        in.Jti,
			IssuedAt:  jwt.NewNumericDate(in.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(in.IssuedAt.Add(TTL)),
		},
		Scope:       in.Scope,
		Patient:     localSubject,
		FhirContext: in.FhirContext,
		Cnf:         in.Cnf,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify checks a local JWT's HMAC signature and expiry (spec §4.4:
// "trusts only the local JWT, rejects any other bearer").
func Verify(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errtypes.AccessDenied("unexpected local token signing algorithm")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errtypes.AccessDenied("local token invalid or expired")
	}
	return claims, nil
}

// LocalSubject computes "Patient/" + hex(SHA-256(value)) from a
// "system|value" identifier string (spec §4.3 step 6, T7).
func LocalSubject(patientRaw string) (string, error) {
	i := strings.IndexByte(patientRaw, '|')
	if i < 0 || i == len(patientRaw)-1 {
		return "", errtypes.AccessDenied("malformed patient identifier")
	}
	value := patientRaw[i+1:]
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("Patient/%s", hex.EncodeToString(sum[:])), nil
}
