package certutil

import (
	"crypto/x509"
	"net/url"

	"github.com/pkg/errors"
)

// DecodeGatewayHeader decodes the URL-escaped PEM certificate the DS
// reverse-proxy gateway forwards in a header (spec §4.3: "the peer mTLS
// certificate ... arrives URL-escaped in a header (e.g. X-Client-Cert)").
func DecodeGatewayHeader(escaped string) (*x509.Certificate, error) {
	if escaped == "" {
		return nil, errors.New("certutil: empty gateway certificate header")
	}
	pemBytes, err := url.QueryUnescape(escaped)
	if err != nil {
		return nil, errors.Wrap(err, "certutil: error unescaping gateway certificate header")
	}
	return ParsePEM([]byte(pemBytes))
}
