package store

import (
	"sync"
	"time"

	"github.com/hdxil/pcm-core/pkg/errtypes"
)

// TTL is the fixed lifetime of every opaque access token (spec §4.1 step 10).
const TTL = 30 * time.Second

// TokenStore is the AS's process-wide token -> TokenRecord map (spec §4.1
// "State", §5 "Token store"). Expiry is checked lazily on Get; there is no
// background sweeper, matching the spec's explicit "restart-safety is
// intentionally absent (POC)".
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*TokenRecord
}

// NewTokenStore returns an empty token store.
func NewTokenStore() TokenStore {
	return TokenStore{tokens: map[string]*TokenRecord{}}
}

// Insert records a freshly minted token. Last-writer-wins on id collision,
// which the spec tolerates as astronomically unlikely for v4 uuids.
func (t *TokenStore) Insert(rec *TokenRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[rec.Token] = rec
}

// Get returns the token record if present and unexpired, deleting it (and
// returning errtypes.NotFound) if it has expired (spec §4.1 "Expiry is
// checked lazily on lookup; expired entries are removed on access").
func (t *TokenStore) Get(token string, now time.Time) (*TokenRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.tokens[token]
	if !ok {
		return nil, errtypes.NotFound("token")
	}
	if now.Unix() >= rec.ExpiresAt {
		delete(t.tokens, token)
		return nil, errtypes.NotFound("token")
	}
	return rec, nil
}

// Delete removes a token unconditionally.
func (t *TokenStore) Delete(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tokens, token)
}
