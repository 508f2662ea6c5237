// Package pcmclient is the PEP's HTTP client to the PCM Authorization
// Server: token acquisition, introspection, and SMART-configuration
// discovery. The access token and the discovery document are each held in
// a single-writer/many-reader cache (spec §4.3, §5 "Caches (PEP)");
// introspection results are not cached.
package pcmclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/pkg/errors"
)

// Config configures the PEP's own client-credentials identity and the
// fallback discovery defaults (spec §4.3 steps 2-3).
type Config struct {
	ClientID             string
	ClientAssertionSigner AssertionSigner
	TokenResource        string // audience/resource this PEP requests tokens for (itself, as introspector)

	DiscoveryURL                string // GET {PCM base}/.well-known/smart-configuration
	DefaultTokenEndpoint         string
	DefaultIntrospectionEndpoint string

	HTTPTimeout time.Duration
}

// AssertionSigner mints a fresh client_assertion JWT for this PEP's own
// token requests. Implemented by pkg/pep's RS256 rsaAssertionSigner at the
// call site (kept as an interface here so pcmclient does not need to know
// about private keys).
type AssertionSigner interface {
	SignAssertion(audience string) (string, error)
}

// Client is the PEP's PCM-facing HTTP client.
type Client struct {
	cfg        Config
	httpClient *http.Client

	tokenMu    sync.RWMutex
	cachedTok  string
	cachedExp  time.Time

	discoveryMu  sync.RWMutex
	discoveryDoc *smartConfiguration
}

type smartConfiguration struct {
	TokenEndpoint         string `json:"token_endpoint"`
	IntrospectionEndpoint string `json:"introspection_endpoint"`
}

// New returns a Client dialing PCM over the given mTLS-capable tlsConfig
// (spec §4.3: "the PEP's own clientId").
func New(cfg Config, tlsConfig *tls.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}
}

// AccessToken returns a cached PCM access token for this PEP's own
// identity, fetching and caching a new one if absent or expired (spec §4.3
// step 2).
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := c.cachedToken(); ok {
		return tok, nil
	}
	return c.fetchAndCacheToken(ctx)
}

// InvalidateToken drops the cached token, forcing the next AccessToken
// call to fetch a fresh one (spec §4.3 step 2: "On 401/403 from PCM,
// invalidate the cached token and retry once").
func (c *Client) InvalidateToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.cachedTok = ""
}

func (c *Client) cachedToken() (string, bool) {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	if c.cachedTok == "" || time.Now().After(c.cachedExp) {
		return "", false
	}
	return c.cachedTok, true
}

func (c *Client) fetchAndCacheToken(ctx context.Context) (string, error) {
	endpoint, err := c.tokenEndpoint(ctx)
	if err != nil {
		return "", err
	}

	assertion, err := c.cfg.ClientAssertionSigner.SignAssertion(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "pcmclient: error signing client assertion")
	}

	form := url.Values{
		"grant_type":             {"client_credentials"},
		"client_assertion_type":  {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":       {assertion},
		"resource":               {c.cfg.TokenResource},
		"scope":                  {fhir.ScopeIntrospection},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "pcmclient: error building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errtypes.AccessDenied("pcmclient: error reaching PCM token endpoint: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errtypes.AccessDenied(fmt.Sprintf("pcmclient: token request rejected with status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "pcmclient: error decoding token response")
	}

	c.tokenMu.Lock()
	c.cachedTok = body.AccessToken
	c.cachedExp = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	c.tokenMu.Unlock()

	return body.AccessToken, nil
}

// IntrospectionResult is the subset of the introspection response the PEP
// acts on (spec §6 "Introspection response is JSON with keys: active, sub,
// scope, iss, aud, client_id, organization_id, patient, fhirContext, cnf,
// exp, iat").
type IntrospectionResult struct {
	Active      bool              `json:"active"`
	Scope       string            `json:"scope"`
	ClientID    string            `json:"client_id"`
	Patient     string            `json:"patient"`
	FhirContext []json.RawMessage `json:"fhirContext"`
	Cnf         map[string]string `json:"cnf"`
	Exp         int64             `json:"exp"`
	Iat         int64             `json:"iat"`
	Aud         string            `json:"aud"`
}

// Introspect calls POST /introspect with bearer as the token-being-checked
// (spec §4.3 step 4).
func (c *Client) Introspect(ctx context.Context, bearer string) (*IntrospectionResult, error) {
	accessToken, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := c.introspectionEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	result, status, err := c.doIntrospect(ctx, endpoint, accessToken, bearer)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.InvalidateToken()
		accessToken, err = c.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		result, status, err = c.doIntrospect(ctx, endpoint, accessToken, bearer)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, errtypes.AccessDenied(fmt.Sprintf("pcmclient: introspection rejected with status %d", status))
	}
	return result, nil
}

func (c *Client) doIntrospect(ctx context.Context, endpoint, accessToken, bearer string) (*IntrospectionResult, int, error) {
	form := url.Values{"token": {bearer}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, errors.Wrap(err, "pcmclient: error building introspection request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errtypes.AccessDenied("pcmclient: error reaching PCM introspection endpoint: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var result IntrospectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, errors.Wrap(err, "pcmclient: error decoding introspection response")
	}
	return &result, resp.StatusCode, nil
}

func (c *Client) tokenEndpoint(ctx context.Context) (string, error) {
	doc, err := c.discovery(ctx)
	if err != nil || doc.TokenEndpoint == "" {
		return c.cfg.DefaultTokenEndpoint, nil
	}
	return doc.TokenEndpoint, nil
}

func (c *Client) introspectionEndpoint(ctx context.Context) (string, error) {
	doc, err := c.discovery(ctx)
	if err != nil || doc.IntrospectionEndpoint == "" {
		return c.cfg.DefaultIntrospectionEndpoint, nil
	}
	return doc.IntrospectionEndpoint, nil
}

// discovery returns the cached SMART configuration document, fetching it
// once if absent (spec §4.3 step 3: "Discover (and cache) PCM SMART
// configuration ... fall back to a configured default on discovery
// failure").
func (c *Client) discovery(ctx context.Context) (*smartConfiguration, error) {
	if doc, ok := c.cachedDiscovery(); ok {
		return doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.DiscoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("pcmclient: discovery request failed")
	}

	var doc smartConfiguration
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}

	c.discoveryMu.Lock()
	c.discoveryDoc = &doc
	c.discoveryMu.Unlock()

	return &doc, nil
}

func (c *Client) cachedDiscovery() (*smartConfiguration, bool) {
	c.discoveryMu.RLock()
	defer c.discoveryMu.RUnlock()
	if c.discoveryDoc == nil {
		return nil, false
	}
	return c.discoveryDoc, true
}
