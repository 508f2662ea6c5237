package as

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hdxil/pcm-core/pkg/appctx"
	"github.com/hdxil/pcm-core/pkg/certutil"
	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/hdxil/pcm-core/pkg/fhir"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/store"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// HandleToken implements POST /token: the client-credentials,
// private-key-JWT, holder-of-key and consent/resource/actor-binding token
// issuance pipeline (spec §4.1 "Token issuance").
func (s *Server) HandleToken(w http.ResponseWriter, r *http.Request) {
	log := appctx.GetLogger(r.Context())

	// step 1: mTLS gate.
	peerCert, err := httpmw.PeerCert(r)
	if err != nil {
		httpmw.WriteOAuthError(w, http.StatusUnauthorized, "access_denied", err.Error())
		return
	}

	if err := r.ParseForm(); err != nil {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	// step 2: grant/assertion shape.
	if r.PostForm.Get("grant_type") != "client_credentials" {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be client_credentials")
		return
	}
	if r.PostForm.Get("client_assertion_type") != "urn:ietf:params:oauth:client-assertion-type:jwt-bearer" {
		httpmw.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "unsupported client_assertion_type")
		return
	}
	rawAssertion := r.PostForm.Get("client_assertion")
	if rawAssertion == "" {
		httpmw.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "missing client_assertion")
		return
	}

	// step 3: resource presence.
	resource := r.PostForm.Get("resource")
	if resource == "" {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "missing resource")
		return
	}

	// step 4: assertion decode.
	unverified, err := parseAssertionUnverified(rawAssertion)
	if err != nil {
		httpmw.WriteOAuthErrorFromErr(w, http.StatusUnauthorized, err)
		return
	}

	// step 5: client lookup.
	client, err := s.Store.GetClient(unverified.Issuer)
	if err != nil {
		httpmw.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}

	// step 6: assertion verification.
	claims, err := verifyAssertion(rawAssertion, client.CertPEM, s.Config.AcceptedAudiences())
	if err != nil {
		httpmw.WriteOAuthErrorFromErr(w, http.StatusUnauthorized, err)
		return
	}

	scope := r.PostForm.Get("scope")
	if scope == "" {
		scope = fhir.ScopeRSDefault
	}

	var (
		patient     string
		fhirContext []store.FhirContextEntry
	)

	// step 7: B2B binding, only when the assertion carries it.
	if claims.Extensions.B2B != nil {
		b2b := claims.Extensions.B2B
		orgID := organizationIDFromURL(b2b.OrganizationID)
		if orgID != client.OrganizationID {
			httpmw.WriteOAuthError(w, http.StatusUnauthorized, "unauthorized_client", "organization_id does not match registered client")
			return
		}

		consents := make([]*store.Consent, 0, len(b2b.ConsentReference))
		for _, ref := range b2b.ConsentReference {
			id := fhir.Reference{Reference: ref}.ID()
			if id == "" {
				id = ref
			}
			consent, err := s.Store.GetConsent(id)
			if err != nil {
				httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", "consent not found: "+ref)
				return
			}
			if consent.Status != fhir.ConsentActive {
				httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", "consent not active: "+ref)
				return
			}
			if !consent.HasActorOrg(client.OrganizationID) {
				httpmw.WriteOAuthError(w, http.StatusUnauthorized, "access_denied", "Client is not a party to this consent")
				return
			}
			consents = append(consents, consent)
		}

		if err := requireResourceOwnedByCustodian(s.Store, resource, consents); err != nil {
			httpmw.WriteOAuthErrorFromErr(w, http.StatusBadRequest, err)
			return
		}

		scope = fhir.ScopeDSData
		patient = consents[0].PatientID.System + "|" + consents[0].PatientID.Value

		fhirContext, err = s.buildFhirContext(consents)
		if err != nil {
			httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", err.Error())
			return
		}
	}

	// step 8: holder-of-key confirmation.
	cnf, err := certutil.ThumbprintFromPEM(client.CertPEM)
	if err != nil {
		httpmw.WriteOAuthError(w, http.StatusBadRequest, "invalid_client", "error computing client certificate thumbprint")
		return
	}
	mtlsThumbprint := certutil.Thumbprint(peerCert)
	if mtlsThumbprint != cnf {
		if s.Config.StrictHolderOfKey {
			httpmw.WriteOAuthError(w, http.StatusUnauthorized, "access_denied", "mTLS certificate does not match the registered client certificate")
			return
		}
		log.Warn().
			Str("client_id", client.ClientID).
			Str("assertion_cert_thumbprint", cnf).
			Str("mtls_thumbprint", mtlsThumbprint).
			Msg("mTLS peer certificate thumbprint does not match the registered client certificate")
	}

	// step 10: minting.
	now := time.Now()
	rec := &store.TokenRecord{
		Token:          uuid.NewString(),
		Sub:            client.ClientID,
		OrganizationID: client.OrganizationID,
		Scope:          scope,
		Issuer:         unverified.Issuer,
		Audience:       resource,
		Patient:        patient,
		FhirContext:    fhirContext,
		CnfX5tS256:     cnf,
		MTLSThumbprint: mtlsThumbprint,
		IssuedAt:       now.Unix(),
		ExpiresAt:      now.Add(store.TTL).Unix(),
	}
	s.Store.Tokens().Insert(rec)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: rec.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(store.TTL.Seconds()),
		Scope:       scope,
	})
}

// requireResourceOwnedByCustodian enforces I6: the requested resource must
// equal the address of an Endpoint owned by a CST actor of some referenced
// consent (spec §4.1 step 7 "Resource binding").
func requireResourceOwnedByCustodian(st *store.Store, resource string, consents []*store.Consent) error {
	for _, consent := range consents {
		for _, custodianRef := range consent.ActorsWithRole(fhir.ActorRoleCST) {
			org, err := st.GetOrganization(custodianRef.ID())
			if err != nil {
				continue
			}
			for _, epRef := range org.Endpoint {
				ep, err := st.GetEndpoint(epRef.ID())
				if err != nil {
					continue
				}
				if ep.Address == resource {
					return nil
				}
			}
		}
	}
	return errtypes.InvalidTarget("resource is not owned by any custodian of the referenced consent(s)")
}

// buildFhirContext assembles the fhirContext entries for the referenced
// consents (spec §4.1 step 9).
func (s *Server) buildFhirContext(consents []*store.Consent) ([]store.FhirContextEntry, error) {
	var out []store.FhirContextEntry
	for _, consent := range consents {
		out = append(out, store.FhirContextEntry{
			Type:       "Consent",
			Identifier: consent.BusinessIdentifier(),
		})

		if consent.PCMService == nil {
			continue
		}
		svc, err := s.Store.GetHealthcareService(consent.PCMService.ID())
		if err != nil {
			continue
		}
		canonical := svc
		if svc.IsInstance() && svc.BasedOnCanonical != nil {
			if c, err := s.Store.GetHealthcareService(svc.BasedOnCanonical.ID()); err == nil {
				canonical = c
			}
		}
		value, ok := canonical.CatalogIdentifier()
		if !ok {
			value = canonical.ID
		}
		out = append(out, store.FhirContextEntry{
			Type: "HealthcareService",
			Identifier: fhir.Identifier{
				System: fhir.SystemHealthcareServiceCatalogID,
				Value:  value,
			},
		})
	}
	return out, nil
}
