package certutil

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// ServerConfig builds a TLS server config requiring and verifying a client
// certificate against trustAnchorFile, for listeners that terminate mTLS
// (spec §6 "requestCert=true, rejectUnauthorized=true"): the PCM-AS/RS
// listener.
func ServerConfig(certFile, keyFile, trustAnchorFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "certutil: error loading server keypair")
	}
	pool, err := loadPool(trustAnchorFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientConfig builds a TLS client config presenting a client certificate,
// for outbound calls that must themselves authenticate via mTLS (spec
// §4.3: the PEP calling PCM).
func ClientConfig(certFile, keyFile, trustAnchorFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "certutil: error loading client keypair")
	}
	pool, err := loadPool(trustAnchorFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func loadPool(trustAnchorFile string) (*x509.CertPool, error) {
	pemBytes, err := os.ReadFile(trustAnchorFile)
	if err != nil {
		return nil, errors.Wrap(err, "certutil: error reading trust anchor")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, errors.New("certutil: no certificates found in trust anchor")
	}
	return pool, nil
}
