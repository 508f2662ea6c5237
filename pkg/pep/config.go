// Package pep implements the DS Policy Enforcement Point: the single
// GET /auth-check operation the reverse-proxy gateway sub-requests for
// every inbound data request (spec §4.3).
package pep

import (
	"crypto/rsa"
	"time"

	"github.com/hdxil/pcm-core/pkg/certutil"
	"github.com/hdxil/pcm-core/pkg/pep/pcmclient"
)

// Config configures the PEP's own PCM client identity, PCM discovery and
// endpoint defaults, and the local-token signing secret. The gateway header
// names are fixed constants (GatewayCertHeader, LocalTokenHeader).
type Config struct {
	ClientID          string        `mapstructure:"client_id"`
	ClientCertFile    string        `mapstructure:"client_cert_file"`
	ClientKeyFile     string        `mapstructure:"client_key_file"`
	PCMTrustAnchorFile string       `mapstructure:"pcm_trust_anchor_file"`

	DiscoveryURL                 string `mapstructure:"discovery_url"`
	DefaultTokenEndpoint         string `mapstructure:"default_token_endpoint"`
	DefaultIntrospectionEndpoint string `mapstructure:"default_introspection_endpoint"`
	IntrospectorAudience         string `mapstructure:"introspector_audience"`

	LocalTokenSecret string `mapstructure:"local_token_secret"`

	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
}

// httpTimeout returns the configured client timeout, defaulting to 10s.
func (c *Config) httpTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Server bundles the PEP's dependencies for the /auth-check handler.
type Server struct {
	cfg    *Config
	pcm    *pcmclient.Client
	secret []byte
}

// New wires a Server from cfg and an RSA signing key for this PEP's own
// client assertions, building its own mTLS client transport to PCM (spec
// §4.3: "the PEP's own clientId").
func New(cfg *Config, signingKey *rsa.PrivateKey) (*Server, error) {
	tlsConfig, err := certutil.ClientConfig(cfg.ClientCertFile, cfg.ClientKeyFile, cfg.PCMTrustAnchorFile)
	if err != nil {
		return nil, err
	}

	client := pcmclient.New(pcmclient.Config{
		ClientID:                     cfg.ClientID,
		ClientAssertionSigner:        &rsaAssertionSigner{clientID: cfg.ClientID, key: signingKey},
		TokenResource:                cfg.IntrospectorAudience,
		DiscoveryURL:                 cfg.DiscoveryURL,
		DefaultTokenEndpoint:         cfg.DefaultTokenEndpoint,
		DefaultIntrospectionEndpoint: cfg.DefaultIntrospectionEndpoint,
		HTTPTimeout:                  cfg.httpTimeout(),
	}, tlsConfig)

	return &Server{cfg: cfg, pcm: client, secret: []byte(cfg.LocalTokenSecret)}, nil
}
