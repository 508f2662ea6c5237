package pep

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// rsaAssertionSigner mints the client_assertion JWT the PEP presents to
// PCM's own token endpoint when acquiring its introspection-scoped access
// token (spec §4.3 step 2).
type rsaAssertionSigner struct {
	clientID string
	key      *rsa.PrivateKey
}

func (s *rsaAssertionSigner) SignAssertion(audience string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.clientID,
		Subject:   s.clientID,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.key)
}
