// Command peps runs the DS Policy Enforcement Point: a single GET
// /auth-check endpoint the reverse-proxy gateway sub-requests for every
// inbound data request (spec §4.3).
package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/hdxil/pcm-core/pkg/config"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/pep"
	"github.com/pkg/errors"
)

var (
	configFlag = flag.String("c", "/etc/peps/peps.toml", "set configuration file")
	testFlag   = flag.Bool("t", false, "test configuration and exit")
)

type listenerConfig struct {
	Addr string `mapstructure:"addr"`
}

type logConfig struct {
	Mode string `mapstructure:"mode"`
}

type signingKeyConfig struct {
	KeyFile string `mapstructure:"key_file"`
}

func main() {
	flag.Parse()

	raw, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "peps: error loading config:", err)
		os.Exit(1)
	}

	var listener listenerConfig
	var logConf logConfig
	var pepConf pep.Config
	var signingConf signingKeyConfig
	for name, dst := range map[string]interface{}{
		"listener":    &listener,
		"log":         &logConf,
		"pep":         &pepConf,
		"signing_key": &signingConf,
	} {
		if err := config.Section(raw, name, dst); err != nil {
			fmt.Fprintln(os.Stderr, "peps: error parsing config section", name, err)
			os.Exit(1)
		}
	}

	if *testFlag {
		fmt.Println("peps: configuration OK")
		return
	}

	logger := config.NewLogger("peps", logConf.Mode)

	keyBytes, err := os.ReadFile(signingConf.KeyFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("error reading assertion signing key")
	}
	signingKey, err := parseRSAPrivateKey(keyBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("error parsing assertion signing key")
	}

	pepServer, err := pep.New(&pepConf, signingKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("error constructing PEP server")
	}

	r := chi.NewRouter()
	r.Use(httpmw.WithLogging(&logger))
	pepServer.Mount(r)

	logger.Info().Str("addr", listener.Addr).Msg("peps listening")
	if err := http.ListenAndServe(listener.Addr, r); err != nil {
		logger.Fatal().Err(err).Msg("peps server exited")
	}
}

// parseRSAPrivateKey accepts either PKCS#1 ("RSA PRIVATE KEY") or PKCS#8
// ("PRIVATE KEY") PEM encodings, matching whichever format the operator's
// key generation tool produced.
func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("peps: no PEM block found in signing key file")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "peps: error parsing signing key")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("peps: signing key is not an RSA key")
	}
	return rsaKey, nil
}
