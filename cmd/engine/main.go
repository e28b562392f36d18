// Command engine wires config, logging, persistence, the matching core and
// every ingress/egress surface into one running process: REST ingress,
// WebSocket market-data feed, persistence sink, and the terminal CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lobengine/internal/broadcast"
	"lobengine/internal/config"
	"lobengine/internal/manager"
	"lobengine/internal/metrics"
	"lobengine/internal/persistence"
	"lobengine/internal/pipeline"
	"lobengine/internal/position"
	"lobengine/internal/restapi"
	"lobengine/internal/textcli"
	"lobengine/internal/wsfeed"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	configureLogging(cfg.Logging)

	bc := broadcast.New()
	mgr := manager.New(bc)
	ledger := position.New()
	bc.Register(position.NewSink(ledger))

	var replayStore pipeline.ReplayStore
	if cfg.Persistence.Enabled {
		store, err := persistence.Open(cfg.Persistence.DBPath, cfg.Persistence.CandleTimeframes)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open persistence store")
		}
		defer store.Close()
		bc.Register(store)
		replayStore = store
	}

	var hub *wsfeed.Hub
	if cfg.WSFeed.Enabled {
		hub = wsfeed.NewHub()
		bc.Register(hub)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		go func() {
			if err := http.ListenAndServe(cfg.WSFeed.ListenAddr, mux); err != nil {
				log.Error().Err(err).Msg("ws feed server stopped")
			}
		}()
		log.Info().Str("addr", cfg.WSFeed.ListenAddr).Msg("market-data feed listening")
	}

	pipe := pipeline.New(mgr, ledger, replayStore)
	defer pipe.Stop()

	m := metrics.New()
	restServer := restapi.New(cfg.REST.ListenAddr, pipe, mgr, ledger, m)
	go func() {
		if err := restServer.Run(); err != nil {
			log.Error().Err(err).Msg("rest server stopped")
		}
	}()
	log.Info().Str("addr", cfg.REST.ListenAddr).Msg("REST ingress listening")

	cli := textcli.New(pipe, mgr, ledger, os.Stdout, os.Stderr)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cli.Run(os.Stdin); err != nil {
			log.Error().Err(err).Msg("cli terminated")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info().Msg("shutdown signal received")
	case <-done:
		log.Info().Msg("cli exited, shutting down")
	}
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
}
