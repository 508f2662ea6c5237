package rs

import (
	"context"
	"net/http"
	"time"

	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/httpmw"
)

// caller is the authenticated identity of an RS request, derived from the
// bearer token's token store record (spec §4.2 "All requests require mTLS
// and a valid bearer token").
type caller struct {
	OrganizationID string
	Admin          bool
	Scope          string
}

type callerKey struct{}

func withCaller(ctx context.Context, c *caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// callerFrom returns the caller attached by requireAuth, or nil if called
// outside requireAuth's chain, which is a programmer error, not a runtime one.
func callerFrom(ctx context.Context) *caller {
	c, _ := ctx.Value(callerKey{}).(*caller)
	return c
}

// requireAuth enforces mTLS presentation and a valid, unexpired bearer token
// ahead of every protected handler (spec §4.2, §7 "mTLS not presented ->
// OperationOutcome with code=login").
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := httpmw.PeerCert(r); err != nil {
			httpmw.WriteOperationOutcome(w, http.StatusUnauthorized, "error", "login", "mTLS client certificate required")
			return
		}

		bearer := bearerToken(r)
		if bearer == "" {
			httpmw.WriteOperationOutcome(w, http.StatusUnauthorized, "error", "login", "bearer token required")
			return
		}

		rec, err := s.Store.Tokens().Get(bearer, time.Now())
		if err != nil {
			httpmw.WriteOperationOutcome(w, http.StatusUnauthorized, "error", "login", "bearer token invalid or expired")
			return
		}

		admin, err := s.isAdmin(rec.OrganizationID)
		if err != nil {
			httpmw.WriteOperationOutcomeFromErr(w, err)
			return
		}

		c := &caller{OrganizationID: rec.OrganizationID, Admin: admin, Scope: rec.Scope}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), c)))
	})
}

// isAdmin reports whether orgID is the PCM organization seeded at boot
// (spec §4.2's "PCM admin" throughout the authorization rules).
func (s *Server) isAdmin(orgID string) (bool, error) {
	pcm, err := s.Store.PCMOrganization()
	if err != nil {
		if _, ok := err.(errtypes.IsNotFound); ok {
			return false, nil
		}
		return false, err
	}
	return pcm.ID == orgID, nil
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
