// Package dsrs implements the DS Resource Server: trusts only the PEP's
// local JWT and returns a Bundle of mock Observations keyed by the token's
// mapped patient subject (spec §4.4).
package dsrs

import (
	"encoding/json"
	"net/http"

	"github.com/hdxil/pcm-core/pkg/dsrs/fixtures"
	"github.com/hdxil/pcm-core/pkg/pep/localtoken"
)

// Config configures the DS-RS's local-token verification secret. It must
// be the same shared secret as the PEP's Config.LocalTokenSecret.
type Config struct {
	LocalTokenSecret string `mapstructure:"local_token_secret"`
}

// Server bundles the DS-RS's dependencies.
type Server struct {
	secret []byte
}

// New returns a Server ready to have its handler mounted on a router.
func New(cfg *Config) *Server {
	return &Server{secret: []byte(cfg.LocalTokenSecret)}
}

type bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Entry        []bundleEntry `json:"entry"`
}

type bundleEntry struct {
	Resource fixtures.Observation `json:"resource"`
}

// HandleData implements the DS-RS's only operation: verify the local JWT,
// then return a Bundle of Observations for the token's patient (spec §4.4:
// "rejects any other bearer ... scopes ... are not enforced at this
// layer").
func (s *Server) HandleData(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	claims, err := localtoken.Verify(s.secret, raw)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	observations := fixtures.ForPatient(claims.Patient)
	entries := make([]bundleEntry, 0, len(observations))
	for _, o := range observations {
		entries = append(entries, bundleEntry{Resource: o})
	}

	w.Header().Set("Content-Type", "application/fhir+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        len(entries),
		Entry:        entries,
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
