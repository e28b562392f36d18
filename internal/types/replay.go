package types

// HistoricalTrade is a trade as read back from the persistence layer for a
// replay query.
type HistoricalTrade struct {
	TradeID     int64
	Symbol      string
	Price       Ticks
	Quantity    uint32
	BuyOrderID  int64
	SellOrderID int64
	Timestamp   int64
}
