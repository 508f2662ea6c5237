package httpmw

import (
	"crypto/x509"
	"net/http"

	"github.com/pkg/errors"
)

// PeerCert returns the verified mTLS peer certificate for r, or an error if
// none was presented — spec §4.1 step 1: "Peer certificate must be
// presented and chain-verified against the configured trust anchor".
// tls.Config.ClientAuth=RequireAndVerifyClientCert already enforces
// presentation and chain verification at the net/http.Server level; this
// just surfaces the verified leaf certificate to handlers.
func PeerCert(r *http.Request) (*x509.Certificate, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return nil, errors.New("httpmw: no mTLS peer certificate presented")
	}
	return r.TLS.PeerCertificates[0], nil
}
