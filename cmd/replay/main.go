// Command replay loads historical trades from the persistence store and
// re-broadcasts them over a standalone market-data feed at a fixed
// playback cadence, mirroring the original engine's replay tool.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"lobengine/internal/persistence"
	"lobengine/internal/types"
	"lobengine/internal/wsfeed"
)

func main() {
	dbPath := flag.String("db", "engine.db", "path to the engine's SQLite trade log")
	symbol := flag.String("symbol", "", "symbol to replay (required)")
	from := flag.Int64("from", 0, "replay window start, nanoseconds")
	to := flag.Int64("to", 1<<62, "replay window end, nanoseconds")
	listenAddr := flag.String("listen", ":9100", "market-data feed listen address")
	playback := flag.Duration("interval", 200*time.Millisecond, "delay between replayed trades")
	flag.Parse()

	if *symbol == "" {
		log.Fatal().Msg("replay: -symbol is required")
	}

	store, err := persistence.Open(*dbPath, nil)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("replay: failed to open store")
	}
	defer store.Close()

	trades, err := store.Replay(*symbol, *from, *to)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: query failed")
	}
	log.Info().Int("count", len(trades)).Str("symbol", *symbol).Msg("replay: loaded trades")

	hub := wsfeed.NewHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	go func() {
		if err := http.ListenAndServe(*listenAddr, mux); err != nil {
			log.Error().Err(err).Msg("replay: feed server stopped")
		}
	}()
	log.Info().Str("addr", *listenAddr).Msg("replay: market-data feed listening")

	// Give any early connecting subscriber a moment to attach before the
	// first trade streams out.
	time.Sleep(2 * time.Second)

	for _, t := range trades {
		event := types.TradeEvent{Trade: types.Trade{
			TradeID:     t.TradeID,
			Symbol:      t.Symbol,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       t.Price,
			Quantity:    t.Quantity,
			Timestamp:   t.Timestamp,
		}}
		if err := hub.Send(event); err != nil {
			log.Warn().Err(err).Msg("replay: broadcast failed")
		}
		time.Sleep(*playback)
	}

	log.Info().Msg("replay: completed")
	os.Exit(0)
}
