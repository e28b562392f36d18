// Package persistence is the SQLite-backed trade log and candle
// aggregator. It is a best-effort broadcast.Sink (spec.md §7
// PersistenceError: logged, matching proceeds regardless) and the
// collaborator behind SubmissionPipeline.Replay.
package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"

	"lobengine/internal/types"
)

// Store is a SQLite-backed trade log plus multi-timeframe candle
// aggregation, matching the schema in spec.md §6.
type Store struct {
	db         *sql.DB
	timeframes []time.Duration // candle bucket widths
}

// Open creates (if needed) the Trades/Candles tables at path and returns a
// Store that maintains a candle for each of timeframes on every trade.
func Open(path string, timeframes []time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db, timeframes: timeframes}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS trades (
	trade_id     INTEGER PRIMARY KEY,
	symbol       TEXT NOT NULL,
	price        INTEGER NOT NULL,
	quantity     INTEGER NOT NULL,
	buy_order_id INTEGER NOT NULL,
	sell_order_id INTEGER NOT NULL,
	timestamp    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades(symbol, timestamp);

CREATE TABLE IF NOT EXISTS candles (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol    TEXT NOT NULL,
	tf        INTEGER NOT NULL,
	start_ts  INTEGER NOT NULL,
	open      INTEGER NOT NULL,
	high      INTEGER NOT NULL,
	low       INTEGER NOT NULL,
	close     INTEGER NOT NULL,
	volume    INTEGER NOT NULL,
	UNIQUE(symbol, tf, start_ts)
);
`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies this sink to the Broadcaster.
func (s *Store) Name() string { return "sqlite-persistence" }

// Send persists a TradeEvent; any other event type is ignored. A write
// failure is logged and returned so the Broadcaster can decide whether to
// evict the sink — it never reaches the matching path.
func (s *Store) Send(event types.MarketDataEvent) error {
	trade, ok := event.(types.TradeEvent)
	if !ok {
		return nil
	}

	if err := s.insertTrade(trade.Trade); err != nil {
		log.Warn().Err(err).Msg("persistence: trade insert failed")
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	for _, tf := range s.timeframes {
		if err := s.upsertCandle(trade.Trade, tf); err != nil {
			log.Warn().Err(err).Dur("tf", tf).Msg("persistence: candle upsert failed")
			return fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
	}
	return nil
}

func (s *Store) insertTrade(t types.Trade) error {
	_, err := s.db.Exec(
		`INSERT INTO trades(trade_id, symbol, price, quantity, buy_order_id, sell_order_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, int64(t.Price), t.Quantity, t.BuyOrderID, t.SellOrderID, t.Timestamp,
	)
	return err
}

// upsertCandle applies the OHLC/volume update rule from spec.md §6:
// on insert all of OHLC = trade price and volume = trade qty; on update,
// high = max(high, p), low = min(low, p), close = p, volume += qty.
func (s *Store) upsertCandle(t types.Trade, tf time.Duration) error {
	tfNanos := tf.Nanoseconds()
	startTS := (t.Timestamp / tfNanos) * tfNanos
	price := int64(t.Price)

	_, err := s.db.Exec(`
INSERT INTO candles(symbol, tf, start_ts, open, high, low, close, volume)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol, tf, start_ts) DO UPDATE SET
	high = MAX(high, excluded.high),
	low = MIN(low, excluded.low),
	close = excluded.close,
	volume = volume + excluded.volume
`, t.Symbol, int64(tf.Seconds()), startTS, price, price, price, price, t.Quantity)
	return err
}

// Replay returns every trade for symbol with fromTs <= timestamp <= toTs,
// ordered by trade ID, for the replay operation behind
// SubmissionPipeline.Replay.
func (s *Store) Replay(symbol string, fromTs, toTs int64) ([]types.HistoricalTrade, error) {
	rows, err := s.db.Query(
		`SELECT trade_id, symbol, price, quantity, buy_order_id, sell_order_id, timestamp
		 FROM trades WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY trade_id ASC`,
		symbol, fromTs, toTs,
	)
	if err != nil {
		return nil, fmt.Errorf("replay query: %w", err)
	}
	defer rows.Close()

	var out []types.HistoricalTrade
	for rows.Next() {
		var h types.HistoricalTrade
		var price int64
		if err := rows.Scan(&h.TradeID, &h.Symbol, &price, &h.Quantity, &h.BuyOrderID, &h.SellOrderID, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("replay scan: %w", err)
		}
		h.Price = types.Ticks(price)
		out = append(out, h)
	}
	return out, rows.Err()
}
