package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is the per-symbol net position and realised P&L tracked by the
// PositionLedger for orders marked as belonging to the user portfolio.
// AvgPrice/RealizedPnL are kept as decimal.Decimal rather than Ticks:
// weighted averaging and P&L accumulation need exact rational arithmetic,
// not a second layer of fixed-point rounding on top of tick prices.
type Position struct {
	Symbol      string
	Quantity    int64 // signed: positive long, negative short
	AvgPrice    decimal.Decimal
	RealizedPnL decimal.Decimal
}

func (p Position) String() string {
	return fmt.Sprintf("Position[sym=%s qty=%d avg=%s pnl=%s]",
		p.Symbol, p.Quantity, p.AvgPrice, p.RealizedPnL)
}
