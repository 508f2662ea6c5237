// Package rs implements the PCM Resource Server: FHIR-style CRUD/search over
// Organization, Endpoint, HealthcareService, Consent and VerificationResult,
// plus the two unauthenticated discovery endpoints (spec §4.2). It shares
// the in-memory store.Store with package as inside cmd/pcmd (spec §5).
package rs

import "github.com/hdxil/pcm-core/pkg/store"

// Config configures the RS's base path and the discovery documents it
// serves (spec §4.2 "Discovery endpoints").
type Config struct {
	// BaseURL is this RS's externally visible base, e.g.
	// "https://pcm.example.org/r4".
	BaseURL string `mapstructure:"base_url"`

	// TokenEndpoint and IntrospectionEndpoint feed the
	// smart-configuration document (spec §4.3 step 3, "discover PCM
	// SMART configuration").
	TokenEndpoint        string `mapstructure:"token_endpoint"`
	IntrospectionEndpoint string `mapstructure:"introspection_endpoint"`
}

// Server bundles the RS's dependencies.
type Server struct {
	Config *Config
	Store  *store.Store
}

// New returns a Server ready to have its handlers mounted on a router.
func New(cfg *Config, st *store.Store) *Server {
	return &Server{Config: cfg, Store: st}
}
