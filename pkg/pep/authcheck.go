package pep

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hdxil/pcm-core/pkg/appctx"
	"github.com/hdxil/pcm-core/pkg/certutil"
	"github.com/hdxil/pcm-core/pkg/pep/localtoken"
	"github.com/hdxil/pcm-core/pkg/pep/pcmclient"
	"github.com/rs/zerolog"
)

// GatewayCertHeader is the header carrying the URL-escaped PEM of the SP's
// mTLS peer certificate, forwarded by the DS-GW (spec §4.3).
const GatewayCertHeader = "X-Client-Cert"

// LocalTokenHeader is the header HandleAuthCheck returns the minted local
// JWT in, for the gateway to rewrite onto the upstream Authorization
// header (spec §4.3 step 7).
const LocalTokenHeader = "X-Local-Token"

// HandleAuthCheck implements GET /auth-check (spec §4.3), the sole PEP
// operation: validate the inbound bearer via PCM introspection, perform
// the advisory thumbprint check, translate identity, and mint a local JWT.
func (s *Server) HandleAuthCheck(w http.ResponseWriter, r *http.Request) {
	log := appctx.GetLogger(r.Context())

	// step 1: extract bearer.
	bearer := bearerToken(r)
	if bearer == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// steps 2-4: PCM introspection (token acquisition/caching and retry
	// are internal to pcmclient.Client).
	result, err := s.pcm.Introspect(r.Context(), bearer)
	if err != nil {
		log.Warn().Err(err).Msg("auth-check: introspection failed")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !result.Active {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// step 5: advisory thumbprint consistency check.
	s.checkThumbprintConsistency(r, result, log)

	// step 6: identity translation and local token minting.
	if result.Patient == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	jwtStr, err := localtoken.Mint(s.secret, localtoken.MintInput{
		ClientID:    result.ClientID,
		Scope:       result.Scope,
		Issuer:      s.cfg.IntrospectorAudience,
		Audience:    result.Aud,
		Jti:         r.Header.Get("X-Request-Id"),
		IssuedAt:    time.Now(),
		PatientRaw:  result.Patient,
		FhirContext: decodeFhirContext(result.FhirContext, log),
		Cnf:         result.Cnf,
	})
	if err != nil {
		log.Warn().Err(err).Msg("auth-check: error minting local token")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// step 7: return 200 with the local token header.
	w.Header().Set(LocalTokenHeader, jwtStr)
	w.WriteHeader(http.StatusOK)
}

// checkThumbprintConsistency compares the gateway-forwarded mTLS peer
// certificate's thumbprint against the introspection response's cnf
// (spec §4.3 step 5: "a mismatch is logged but not blocking").
func (s *Server) checkThumbprintConsistency(r *http.Request, result *pcmclient.IntrospectionResult, log *zerolog.Logger) {
	escaped := r.Header.Get(GatewayCertHeader)
	if escaped == "" {
		return
	}
	cert, err := certutil.DecodeGatewayHeader(escaped)
	if err != nil {
		log.Warn().Err(err).Msg("auth-check: error decoding gateway certificate header")
		return
	}
	want := result.Cnf["x5t#S256"]
	got := certutil.Thumbprint(cert)
	if want != "" && want != got {
		log.Warn().
			Str("cnf_thumbprint", want).
			Str("gateway_thumbprint", got).
			Msg("auth-check: gateway certificate thumbprint does not match token cnf")
	}
}

// decodeFhirContext unmarshals the raw fhirContext entries from the
// introspection response into the shape the local token carries (spec §4.3
// step 6: "fhirContext"), logging and dropping any entry that fails to
// decode rather than failing the whole request.
func decodeFhirContext(raw []json.RawMessage, log *zerolog.Logger) []localtoken.FhirContextEntry {
	if len(raw) == 0 {
		return nil
	}
	entries := make([]localtoken.FhirContextEntry, 0, len(raw))
	for _, r := range raw {
		var e localtoken.FhirContextEntry
		if err := json.Unmarshal(r, &e); err != nil {
			log.Warn().Err(err).Msg("auth-check: error decoding fhirContext entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
