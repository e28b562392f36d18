// Package types holds the core value types shared by every component of the
// matching engine: orders, trades, positions and the error taxonomy.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the fixed-point scale used to convert between the decimal
// prices accepted at the wire boundary and the int64 ticks used as tree
// keys inside the Book. Exact equality on tick keys is required by
// spec.md's invariant 1 (no crossed book); float64 prices would let levels
// fragment silently, so every price that enters the book is first
// normalised to ticks.
const PriceScale = 100_000_000

// Ticks is a price expressed as a fixed-point integer, scaled by
// PriceScale. It is the only price representation the Book/Manager ever
// compare or store as a map key.
type Ticks int64

// TicksFromDecimal converts a decimal price (as accepted on the wire) to
// fixed-point ticks, rounding to the nearest tick.
func TicksFromDecimal(d decimal.Decimal) Ticks {
	scaled := d.Mul(decimal.NewFromInt(PriceScale)).Round(0)
	return Ticks(scaled.IntPart())
}

// Decimal converts ticks back to a human-readable decimal price.
func (t Ticks) Decimal() decimal.Decimal {
	return decimal.New(int64(t), 0).Div(decimal.NewFromInt(PriceScale))
}

// Side is the direction of an order: Buy or Sell.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Side) UnmarshalJSON(data []byte) error {
	str := unquote(data)
	switch str {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	default:
		return fmt.Errorf("unknown side: %s", str)
	}
	return nil
}

// Opposite returns the other side: Buy<->Sell.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind distinguishes resting Limit orders from never-resting Market orders.
type Kind int

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	switch k {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	str := unquote(data)
	switch str {
	case "LIMIT":
		*k = Limit
	case "MARKET":
		*k = Market
	default:
		return fmt.Errorf("unknown order type: %s", str)
	}
	return nil
}

func unquote(data []byte) string {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Order is the unit of submission. Quantity mutates as fills occur;
// everything else is immutable once submitted.
type Order struct {
	OrderID   int64
	Symbol    string
	Side      Side
	Kind      Kind
	Price     Ticks // normalised to 0 for Market orders
	Quantity  uint32
	Timestamp int64 // submission time, monotonic nanoseconds
	UserOwned bool  // true if fills should be recorded in the PositionLedger
}

// Validate enforces the SubmissionPipeline's entry-level checks
// (spec.md §4.5 / §7 ValidationError).
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if o.Quantity == 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if o.Kind == Limit && o.Price <= 0 {
		return fmt.Errorf("%w: price must be positive for limit orders", ErrValidation)
	}
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("Order[id=%d sym=%s side=%s kind=%s price=%s qty=%d ts=%d]",
		o.OrderID, o.Symbol, o.Side, o.Kind, o.Price.Decimal(), o.Quantity, o.Timestamp)
}
