// Command dsrsd runs the DS Resource Server: trusts only the PEP's local
// JWT and serves a Bundle of mock Observations per mapped patient (spec
// §4.4). A real deployment sits behind DS-GW; this binary does not
// implement the gateway itself and can also be called directly.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/hdxil/pcm-core/pkg/config"
	"github.com/hdxil/pcm-core/pkg/dsrs"
	"github.com/hdxil/pcm-core/pkg/httpmw"
)

var (
	configFlag = flag.String("c", "/etc/dsrsd/dsrsd.toml", "set configuration file")
	testFlag   = flag.Bool("t", false, "test configuration and exit")
)

type listenerConfig struct {
	Addr string `mapstructure:"addr"`
}

type logConfig struct {
	Mode string `mapstructure:"mode"`
}

func main() {
	flag.Parse()

	raw, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dsrsd: error loading config:", err)
		os.Exit(1)
	}

	var listener listenerConfig
	var logConf logConfig
	var dsrsConf dsrs.Config
	for name, dst := range map[string]interface{}{
		"listener": &listener,
		"log":      &logConf,
		"dsrs":     &dsrsConf,
	} {
		if err := config.Section(raw, name, dst); err != nil {
			fmt.Fprintln(os.Stderr, "dsrsd: error parsing config section", name, err)
			os.Exit(1)
		}
	}

	if *testFlag {
		fmt.Println("dsrsd: configuration OK")
		return
	}

	logger := config.NewLogger("dsrsd", logConf.Mode)

	dsrsServer := dsrs.New(&dsrsConf)

	r := chi.NewRouter()
	r.Use(httpmw.WithLogging(&logger))
	dsrsServer.Mount(r)

	logger.Info().Str("addr", listener.Addr).Msg("dsrsd listening")
	if err := http.ListenAndServe(listener.Addr, r); err != nil {
		logger.Fatal().Err(err).Msg("dsrsd server exited")
	}
}
