// Command pcmd runs the PCM Authorization Server and Resource Server in
// one process over a single mTLS-required listener, sharing one in-memory
// store.Store (spec §5 "The RS and AS share the same process").
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/hdxil/pcm-core/pkg/certutil"
	"github.com/hdxil/pcm-core/pkg/config"
	"github.com/hdxil/pcm-core/pkg/httpmw"
	"github.com/hdxil/pcm-core/pkg/pcm/as"
	"github.com/hdxil/pcm-core/pkg/pcm/rs"
	"github.com/hdxil/pcm-core/pkg/seed"
	"github.com/hdxil/pcm-core/pkg/store"
)

var (
	configFlag = flag.String("c", "/etc/pcmd/pcmd.toml", "set configuration file")
	testFlag   = flag.Bool("t", false, "test configuration and exit")
)

type listenerConfig struct {
	Addr            string `mapstructure:"addr"`
	CertFile        string `mapstructure:"cert_file"`
	KeyFile         string `mapstructure:"key_file"`
	TrustAnchorFile string `mapstructure:"trust_anchor_file"`
}

type logConfig struct {
	Mode string `mapstructure:"mode"`
}

func main() {
	flag.Parse()

	raw, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pcmd: error loading config:", err)
		os.Exit(1)
	}

	var listener listenerConfig
	var logConf logConfig
	var asConf as.Config
	var rsConf rs.Config
	var clientCerts map[string]string
	for name, dst := range map[string]interface{}{
		"listener": &listener,
		"log":      &logConf,
		"as":       &asConf,
		"rs":       &rsConf,
		"clients":  &clientCerts,
	} {
		if err := config.Section(raw, name, dst); err != nil {
			fmt.Fprintln(os.Stderr, "pcmd: error parsing config section", name, err)
			os.Exit(1)
		}
	}

	if *testFlag {
		fmt.Println("pcmd: configuration OK")
		return
	}

	logger := config.NewLogger("pcmd", logConf.Mode)

	certs := seed.ClientCerts{}
	for clientID, path := range clientCerts {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("client_id", clientID).Msg("error reading client certificate")
		}
		certs[clientID] = pemBytes
	}

	st := store.New()
	seed.Bootstrap(st, certs)

	asServer := as.New(&asConf, st)
	rsServer := rs.New(&rsConf, st)

	r := chi.NewRouter()
	r.Use(httpmw.WithLogging(&logger))
	asServer.Mount(r)
	r.Route("/r4", func(r chi.Router) {
		rsServer.Mount(r)
	})

	tlsConfig, err := certutil.ServerConfig(listener.CertFile, listener.KeyFile, listener.TrustAnchorFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("error building mTLS listener config")
	}

	srv := &http.Server{
		Addr:      listener.Addr,
		Handler:   r,
		TLSConfig: tlsConfig,
	}

	logger.Info().Str("addr", listener.Addr).Msg("pcmd listening")
	if err := srv.ListenAndServeTLS("", ""); err != nil {
		logger.Fatal().Err(err).Msg("pcmd server exited")
	}
}
