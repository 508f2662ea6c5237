// Package as implements the PCM Authorization Server: POST /token and
// POST /introspect (spec §4.1). It shares the in-memory store.Store with
// package rs (spec §5: "The RS and AS share the same process").
package as

import "github.com/hdxil/pcm-core/pkg/store"

// Config configures the AS's token-endpoint audience acceptance and the
// mTLS/holder-of-key mismatch policy.
type Config struct {
	// PublicHost is the AS's externally visible host, used to derive the
	// accepted token-endpoint audiences (spec §4.1 step 6: "both http and
	// https variants are accepted to tolerate TLS-terminating proxies").
	PublicHost string `mapstructure:"public_host"`

	// TokenPath is the path component of the token endpoint, appended to
	// PublicHost to build the accepted audiences.
	TokenPath string `mapstructure:"token_path"`

	// IntrospectorAddress is this AS's own Endpoint.address, used by
	// POST /introspect to bind introspection to the calling PEP (spec
	// §4.1 "Introspection" step 1).
	IntrospectorAddress string `mapstructure:"introspector_address"`

	// StrictHolderOfKey, when true, rejects token issuance on an
	// mTLS/assertion-certificate thumbprint mismatch instead of merely
	// logging a warning (spec §9 design note / Open Question (a)).
	// Default false, matching the spec's stated behavior.
	StrictHolderOfKey bool `mapstructure:"strict_holder_of_key"`
}

// AcceptedAudiences returns the small set of token-endpoint URLs the
// client assertion's aud claim may equal (spec §4.1 step 6).
func (c *Config) AcceptedAudiences() []string {
	return []string{
		"https://" + c.PublicHost + c.TokenPath,
		"http://" + c.PublicHost + c.TokenPath,
	}
}

// Server bundles the AS's dependencies: the shared store and its config.
type Server struct {
	Config *Config
	Store  *store.Store
}

// New returns a Server ready to have its handlers mounted on a router.
func New(cfg *Config, st *store.Store) *Server {
	return &Server{Config: cfg, Store: st}
}
