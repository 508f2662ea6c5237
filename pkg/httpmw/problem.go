// Package httpmw holds the small set of HTTP middlewares and response
// helpers shared by the AS, RS, PEP and DS-RS routers: request-scoped
// logging (spec ambient stack), mTLS peer-certificate extraction, and the
// two error-rendering shapes spec §7 requires — an OAuth-style JSON body for
// AS endpoints and a minimal OperationOutcome for RS endpoints.
package httpmw

import (
	"encoding/json"
	"net/http"

	"github.com/hdxil/pcm-core/pkg/appctx"
	"github.com/hdxil/pcm-core/pkg/errtypes"
)

// oauthErrorBody is the wire shape POST /token and POST /introspect errors use.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteOAuthError renders an OAuth 2.0 style JSON error body with the given
// status code (spec §7).
func WriteOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(oauthErrorBody{Error: code, ErrorDescription: description})
}

// WriteOAuthErrorFromErr inspects err for an errtypes.OAuthError and
// renders its code; otherwise falls back to a generic access_denied at the
// given status.
func WriteOAuthErrorFromErr(w http.ResponseWriter, status int, err error) {
	if oe, ok := err.(errtypes.OAuthError); ok {
		WriteOAuthError(w, status, oe.OAuthErrorCode(), oe.Error())
		return
	}
	WriteOAuthError(w, status, "access_denied", err.Error())
}

// operationOutcomeIssue is one entry of an OperationOutcome.issue list.
type operationOutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

type operationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []operationOutcomeIssue `json:"issue"`
}

// WriteOperationOutcome renders a minimal FHIR OperationOutcome with the
// given status, severity and issue code (spec §4.2, §7).
func WriteOperationOutcome(w http.ResponseWriter, status int, severity, code, diagnostics string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(operationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        []operationOutcomeIssue{{Severity: severity, Code: code, Diagnostics: diagnostics}},
	})
}

// WriteOperationOutcomeFromErr maps a store/RS error to an OperationOutcome,
// per spec §7's error table: not-found -> 404, forbidden -> 403, login
// required -> 401 code=login, anything else -> 500.
func WriteOperationOutcomeFromErr(w http.ResponseWriter, err error) {
	switch {
	case isA[errtypes.IsNotFound](err):
		WriteOperationOutcome(w, http.StatusNotFound, "error", "not-found", err.Error())
	case isA[errtypes.IsForbidden](err):
		WriteOperationOutcome(w, http.StatusForbidden, "error", "forbidden", err.Error())
	case isA[errtypes.IsLoginRequired](err):
		WriteOperationOutcome(w, http.StatusUnauthorized, "error", "login", err.Error())
	default:
		WriteOperationOutcome(w, http.StatusInternalServerError, "fatal", "exception", err.Error())
	}
}

func isA[T any](err error) bool {
	_, ok := err.(T)
	return ok
}

// LogErr logs err at warn level on the request's context logger, a thin
// convenience used by handlers right before rendering an error response.
func LogErr(r *http.Request, err error, msg string) {
	appctx.GetLogger(r.Context()).Warn().Err(err).Msg(msg)
}
