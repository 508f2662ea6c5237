package store

import (
	"sync"

	"github.com/hdxil/pcm-core/pkg/errtypes"
)

// Store is the process-wide, in-memory resource graph shared by the AS and
// RS (spec §5: "The RS and AS share the same process ... and therefore
// share the token store and resource store in memory"). One RWMutex guards
// every resource-type map; the resource graph is small and request volume
// low enough that a single coarse lock is simpler than per-type locking and
// still satisfies the spec's read-modify-write atomicity requirement for
// multi-step handlers (Consent update, HealthcareService create). The
// token store has its own lock (see tokenstore.go) since it is on the hot
// path of every AS and PEP request and shouldn't contend with RS traffic.
type Store struct {
	mu sync.RWMutex

	organizations       map[string]*Organization
	endpoints           map[string]*Endpoint
	healthcareServices  map[string]*HealthcareService
	consents            map[string]*Consent
	verificationResults map[string]*VerificationResult
	clients             map[string]*Client

	tokens TokenStore
}

// New returns an empty Store. Callers seed it with Bootstrap or the
// individual Put* helpers before serving traffic.
func New() *Store {
	return &Store{
		organizations:       map[string]*Organization{},
		endpoints:           map[string]*Endpoint{},
		healthcareServices:  map[string]*HealthcareService{},
		consents:            map[string]*Consent{},
		verificationResults: map[string]*VerificationResult{},
		clients:             map[string]*Client{},
		tokens:              NewTokenStore(),
	}
}

// Tokens returns the shared opaque-token map (spec §4.1 "State").
func (s *Store) Tokens() *TokenStore { return &s.tokens }

// --- Organization ---

func (s *Store) PutOrganization(o *Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[o.ID] = o
}

func (s *Store) GetOrganization(id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.organizations[id]
	if !ok {
		return nil, errtypes.NotFound("Organization/" + id)
	}
	return o, nil
}

func (s *Store) ListOrganizations() []*Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Organization, 0, len(s.organizations))
	for _, o := range s.organizations {
		out = append(out, o)
	}
	return out
}

// PCMOrganization returns the single Organization of type "pcm" seeded at
// boot (spec §3: "Exactly one Organization of type pcm exists").
func (s *Store) PCMOrganization() (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.organizations {
		if o.IsType("pcm") {
			return o, nil
		}
	}
	return nil, errtypes.NotFound("Organization/type=pcm")
}

// --- Endpoint ---

func (s *Store) PutEndpoint(e *Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[e.ID] = e
}

func (s *Store) GetEndpoint(id string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.endpoints[id]
	if !ok {
		return nil, errtypes.NotFound("Endpoint/" + id)
	}
	return e, nil
}

func (s *Store) ListEndpoints() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Endpoint, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		out = append(out, e)
	}
	return out
}

// EndpointByAddress looks up the (unique) Endpoint with the given address.
func (s *Store) EndpointByAddress(address string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.endpoints {
		if e.Address == address {
			return e, nil
		}
	}
	return nil, errtypes.NotFound("Endpoint/address=" + address)
}

// --- HealthcareService ---

func (s *Store) PutHealthcareService(h *HealthcareService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthcareServices[h.ID] = h
}

func (s *Store) GetHealthcareService(id string) (*HealthcareService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.healthcareServices[id]
	if !ok {
		return nil, errtypes.NotFound("HealthcareService/" + id)
	}
	return h, nil
}

func (s *Store) ListHealthcareServices() []*HealthcareService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*HealthcareService, 0, len(s.healthcareServices))
	for _, h := range s.healthcareServices {
		out = append(out, h)
	}
	return out
}

// --- Consent ---

func (s *Store) PutConsent(c *Consent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consents[c.ID] = c
}

func (s *Store) GetConsent(id string) (*Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[id]
	if !ok {
		return nil, errtypes.NotFound("Consent/" + id)
	}
	return c, nil
}

func (s *Store) ListConsents() []*Consent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Consent, 0, len(s.consents))
	for _, c := range s.consents {
		out = append(out, c)
	}
	return out
}

// --- VerificationResult ---

func (s *Store) PutVerificationResult(v *VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verificationResults[v.ID] = v
}

func (s *Store) GetVerificationResult(id string) (*VerificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verificationResults[id]
	if !ok {
		return nil, errtypes.NotFound("VerificationResult/" + id)
	}
	return v, nil
}

func (s *Store) ListVerificationResults() []*VerificationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*VerificationResult, 0, len(s.verificationResults))
	for _, v := range s.verificationResults {
		out = append(out, v)
	}
	return out
}

// --- Client ---

func (s *Store) PutClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
}

func (s *Store) GetClient(clientID string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, errtypes.NotFound("Client/" + clientID)
	}
	return c, nil
}
