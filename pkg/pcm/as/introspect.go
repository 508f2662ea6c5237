package as

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/httpmw"
)

type introspectResponse struct {
	Active         bool                     `json:"active"`
	Sub            string                   `json:"sub,omitempty"`
	Scope          string                   `json:"scope,omitempty"`
	ClientID       string                   `json:"client_id,omitempty"`
	OrganizationID string                   `json:"organization_id,omitempty"`
	Patient        string                   `json:"patient,omitempty"`
	FhirContext    []introspectContextEntry `json:"fhirContext,omitempty"`
	Cnf            map[string]string        `json:"cnf,omitempty"`
	Exp            int64                    `json:"exp,omitempty"`
	Iat            int64                    `json:"iat,omitempty"`
	Iss            string                   `json:"iss,omitempty"`
	Aud            string                   `json:"aud,omitempty"`
}

type introspectContextEntry struct {
	Type       string         `json:"type"`
	Identifier fhir.Identifier `json:"identifier"`
}

// HandleIntrospect implements POST /introspect (spec §4.1 "Introspection"):
// the calling PEP must itself hold a token issued for this AS's own
// introspector endpoint, and the token being introspected must have this
// caller as its audience.
func (s *Server) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	callerRec, err := s.authenticateIntrospectionCaller(r)
	if err != nil {
		httpmw.WriteOAuthErrorFromErr(w, http.StatusUnauthorized, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	token := r.PostForm.Get("token")
	if token == "" {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "missing token")
		return
	}

	rec, err := s.Store.Tokens().Get(token, time.Now())
	if err != nil {
		writeInactive(w)
		return
	}

	// introspection is only valid for the resource server the token was
	// actually minted against; a PEP cannot introspect a token bound to a
	// different audience (spec §4.1 "Introspection" step 2).
	if rec.Audience != callerRec.Audience {
		writeInactive(w)
		return
	}

	entries := make([]introspectContextEntry, 0, len(rec.FhirContext))
	for _, e := range rec.FhirContext {
		entries = append(entries, introspectContextEntry{Type: e.Type, Identifier: e.Identifier})
	}

	var cnf map[string]string
	if rec.CnfX5tS256 != "" {
		cnf = map[string]string{"x5t#S256": rec.CnfX5tS256}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(introspectResponse{
		Active:         true,
		Sub:            rec.Sub,
		Scope:          rec.Scope,
		ClientID:       rec.Sub,
		OrganizationID: rec.OrganizationID,
		Patient:        rec.Patient,
		FhirContext:    entries,
		Cnf:            cnf,
		Exp:            rec.ExpiresAt,
		Iat:            rec.IssuedAt,
		Iss:            rec.Issuer,
		Aud:            rec.Audience,
	})
}

// authenticateIntrospectionCaller recovers and validates the bearer token
// the PEP presents to call POST /introspect: it must be active, carry the
// introspection scope, and be bound to this AS's own introspector address
// (spec §4.1 "Introspection" step 1).
func (s *Server) authenticateIntrospectionCaller(r *http.Request) (*introspectCaller, error) {
	bearer := bearerToken(r)
	if bearer == "" {
		return nil, errtypes.LoginRequired("missing bearer token")
	}
	rec, err := s.Store.Tokens().Get(bearer, time.Now())
	if err != nil {
		return nil, errtypes.AccessDenied("introspection caller token is invalid or expired")
	}
	if rec.Scope != fhir.ScopeIntrospection {
		return nil, errtypes.AccessDenied("introspection caller token lacks the introspection scope")
	}
	if rec.Audience != s.Config.IntrospectorAddress {
		return nil, errtypes.AccessDenied("token was not issued for this introspector")
	}
	return &introspectCaller{Audience: rec.Audience}, nil
}

type introspectCaller struct {
	Audience string
}

func writeInactive(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(introspectResponse{Active: false})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
