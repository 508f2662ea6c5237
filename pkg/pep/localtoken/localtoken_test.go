package localtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLocalSubject_MatchesScenario5 pins the identity-mapping example from
// the spec's concrete scenarios: introspection returns patient = "sys|123"
// and the PEP must return local JWT patient =
// "Patient/a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3".
func TestLocalSubject_MatchesScenario5(t *testing.T) {
	got, err := LocalSubject("sys|123")
	require.NoError(t, err)
	require.Equal(t, "Patient/a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3", got)
}

func TestLocalSubject_RejectsMalformed(t *testing.T) {
	_, err := LocalSubject("no-pipe-here")
	require.Error(t, err)

	_, err = LocalSubject("system|")
	require.Error(t, err)
}

func TestMintAndVerify_RoundTrip(t *testing.T) {
	secret := []byte("test-shared-secret")
	now := time.Now()

	raw, err := Mint(secret, MintInput{
		ClientID:   "client-ds-gw",
		Scope:      "patient/Observation.rs",
		Issuer:     "pep",
		Audience:   "https://ds-rs.example.org",
		Jti:        "req-1",
		IssuedAt:   now,
		PatientRaw: "http://fhir.health.gov.il/identifier/il-national-id|99887766",
		Cnf:        map[string]string{"x5t#S256": "abc123"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := Verify(secret, raw)
	require.NoError(t, err)
	require.Equal(t, "client-ds-gw", claims.Subject)
	require.Equal(t, "abc123", claims.Cnf["x5t#S256"])
	require.NotEqual(t, "http://fhir.health.gov.il/identifier/il-national-id|99887766", claims.Patient)
	require.Regexp(t, "^Patient/[0-9a-f]{64}$", claims.Patient)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	raw, err := Mint([]byte("secret-a"), MintInput{
		ClientID:   "client-1",
		Issuer:     "pep",
		Audience:   "aud",
		IssuedAt:   time.Now(),
		PatientRaw: "sys|1",
	})
	require.NoError(t, err)

	_, err = Verify([]byte("secret-b"), raw)
	require.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	raw, err := Mint([]byte("secret"), MintInput{
		ClientID:   "client-1",
		Issuer:     "pep",
		Audience:   "aud",
		IssuedAt:   time.Now().Add(-2 * TTL),
		PatientRaw: "sys|1",
	})
	require.NoError(t, err)

	_, err = Verify([]byte("secret"), raw)
	require.Error(t, err)
}
