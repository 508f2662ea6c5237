// Package errtypes contains definitions for the error kinds used across the
// AS, RS, PEP and DS-RS handlers. Each kind is a string type implementing
// error plus a marker interface, so callers can type-switch on "is this a
// not-found" rather than compare error strings. It would be nice to call
// this package errors, err or error but errors clashes with
// github.com/pkg/errors, err is used for any error variable and error is a
// reserved word.
package errtypes

// NotFound is returned when a resource does not exist, or — for Consent
// reads by a non-party caller — to avoid existence disclosure (spec §4.2).
type NotFound string

func (e NotFound) Error() string { return "not found: " + string(e) }
func (e NotFound) IsNotFound()   {}

// Forbidden is returned when an authenticated caller is not allowed to
// perform the requested RS operation.
type Forbidden string

func (e Forbidden) Error() string { return "forbidden: " + string(e) }
func (e Forbidden) IsForbidden()  {}

// LoginRequired is returned when mTLS or a bearer token was not presented
// to the RS at all.
type LoginRequired string

func (e LoginRequired) Error() string    { return "login required: " + string(e) }
func (e LoginRequired) IsLoginRequired() {}

// InvalidClient covers a malformed assertion, an unknown client, a bad
// signature, or a bad assertion audience — all surfaced as
// 401 invalid_client by the AS (spec §4.1 steps 2,4,5,6).
type InvalidClient string

func (e InvalidClient) Error() string      { return "invalid_client: " + string(e) }
func (e InvalidClient) IsInvalidClient()   {}
func (e InvalidClient) OAuthErrorCode() string { return "invalid_client" }

// InvalidGrant covers a consent reference that cannot be resolved or that
// is not active at token-issuance time (spec §4.1 step 7).
type InvalidGrant string

func (e InvalidGrant) Error() string          { return "invalid_grant: " + string(e) }
func (e InvalidGrant) IsInvalidGrant()        {}
func (e InvalidGrant) OAuthErrorCode() string { return "invalid_grant" }

// InvalidRequest covers shape errors in the token request, such as a
// missing resource parameter (spec §4.1 step 3).
type InvalidRequest string

func (e InvalidRequest) Error() string          { return "invalid_request: " + string(e) }
func (e InvalidRequest) IsInvalidRequest()      {}
func (e InvalidRequest) OAuthErrorCode() string { return "invalid_request" }

// InvalidTarget covers a requested resource indicator that is not owned by
// any custodian of the consent being bound (spec §4.1 step 7, I6).
type InvalidTarget string

func (e InvalidTarget) Error() string          { return "invalid_target: " + string(e) }
func (e InvalidTarget) IsInvalidTarget()       {}
func (e InvalidTarget) OAuthErrorCode() string { return "invalid_target" }

// UnsupportedGrantType covers a grant_type other than client_credentials
// (spec §4.1 step 2).
type UnsupportedGrantType string

func (e UnsupportedGrantType) Error() string          { return "unsupported_grant_type: " + string(e) }
func (e UnsupportedGrantType) IsUnsupportedGrantType() {}
func (e UnsupportedGrantType) OAuthErrorCode() string  { return "unsupported_grant_type" }

// UnauthorizedClient covers a B2B organization_id that does not match the
// client's bound organization (spec §4.1 step 7).
type UnauthorizedClient string

func (e UnauthorizedClient) Error() string          { return "unauthorized_client: " + string(e) }
func (e UnauthorizedClient) IsUnauthorizedClient()  {}
func (e UnauthorizedClient) OAuthErrorCode() string { return "unauthorized_client" }

// AccessDenied covers mTLS not presented/verified, and a client organization
// that is not a party to the consent it references (spec §4.1 steps 1,7, I5).
type AccessDenied string

func (e AccessDenied) Error() string          { return "access_denied: " + string(e) }
func (e AccessDenied) IsAccessDenied()        {}
func (e AccessDenied) OAuthErrorCode() string { return "access_denied" }

// IsNotFound is implemented by errors representing a missing resource.
type IsNotFound interface{ IsNotFound() }

// IsForbidden is implemented by errors representing a denied RS operation.
type IsForbidden interface{ IsForbidden() }

// IsLoginRequired is implemented by errors representing a missing mTLS/bearer.
type IsLoginRequired interface{ IsLoginRequired() }

// IsInvalidClient is implemented by errors representing a rejected assertion.
type IsInvalidClient interface{ IsInvalidClient() }

// IsInvalidGrant is implemented by errors representing an unusable consent.
type IsInvalidGrant interface{ IsInvalidGrant() }

// IsInvalidRequest is implemented by errors representing a malformed request.
type IsInvalidRequest interface{ IsInvalidRequest() }

// IsInvalidTarget is implemented by errors representing an unowned resource.
type IsInvalidTarget interface{ IsInvalidTarget() }

// IsUnsupportedGrantType is implemented by errors representing a bad grant_type.
type IsUnsupportedGrantType interface{ IsUnsupportedGrantType() }

// IsUnauthorizedClient is implemented by errors representing an organization
// mismatch between client and B2B assertion.
type IsUnauthorizedClient interface{ IsUnauthorizedClient() }

// IsAccessDenied is implemented by errors representing a denied AS operation.
type IsAccessDenied interface{ IsAccessDenied() }

// OAuthError is implemented by every AS error kind that carries a fixed
// OAuth 2.0 error code for the {error, error_description} response body.
type OAuthError interface {
	error
	OAuthErrorCode() string
}
