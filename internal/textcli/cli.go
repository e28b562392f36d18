// Package textcli is the engine's terminal interface: a CSV-ish textual
// command language ported from the original C++ engine's read loop
// (engine-main.cpp), rewritten to total parsing (spec.md §7 — a malformed
// line prints an error and the loop continues, it never panics).
package textcli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"lobengine/internal/manager"
	"lobengine/internal/pipeline"
	"lobengine/internal/position"
	"lobengine/internal/types"
)

const usage = `Commands:
  NEW,<orderId>,<SYMBOL>,<BUY|SELL>,<LIMIT|MARKET>,<price or 0>,<qty>
    e.g. NEW,1,AAPL,BUY,LIMIT,100.5,10
    e.g. NEW,2,AAPL,SELL,MARKET,0,5
  CANCEL,<SYMBOL>,<orderId>
  SNAP            -- print top-of-book for every traded symbol
  SNAP,<SYMBOL>   -- print top-of-book for one symbol
  POSITIONS       -- print the operator's net position and P&L per symbol
  HELP
  QUIT / EXIT
`

// CLI reads commands from in and writes output/errors to out/errOut.
type CLI struct {
	pipe   *pipeline.Pipeline
	mgr    *manager.Manager
	ledger *position.Ledger
	out    io.Writer
	errOut io.Writer
}

// New creates a CLI driving pipe for mutations, mgr for read-only book
// snapshots, and ledger for the POSITIONS command. Every NEW order typed
// at the terminal is treated as belonging to the operator, so its fills
// are recorded in ledger.
func New(pipe *pipeline.Pipeline, mgr *manager.Manager, ledger *position.Ledger, out, errOut io.Writer) *CLI {
	return &CLI{pipe: pipe, mgr: mgr, ledger: ledger, out: out, errOut: errOut}
}

// Run reads one command per line from in until QUIT/EXIT or EOF.
func (c *CLI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(c.out, "Trading engine CLI (type HELP for usage)")

	for scanner.Scan() {
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "QUIT" || line == "EXIT" {
			return nil
		}
		if line == "HELP" {
			fmt.Fprint(c.out, usage)
			continue
		}
		if line == "POSITIONS" {
			c.handlePositions()
			continue
		}
		if strings.HasPrefix(line, "SNAP") {
			c.handleSnap(line)
			continue
		}

		parts := splitTrim(line, ',')
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "NEW":
			c.handleNew(parts)
		case "CANCEL":
			c.handleCancel(parts)
		default:
			fmt.Fprintf(c.errOut, "unknown command: %s\n", parts[0])
		}
	}
	return scanner.Err()
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func splitTrim(s string, sep byte) []string {
	raw := strings.Split(s, string(sep))
	out := make([]string, len(raw))
	for i, tok := range raw {
		out[i] = strings.TrimSpace(tok)
	}
	return out
}

func (c *CLI) handleNew(parts []string) {
	if len(parts) != 7 {
		fmt.Fprintln(c.errOut, "NEW command requires 6 args. Type HELP.")
		return
	}

	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		fmt.Fprintf(c.errOut, "invalid orderId: %s\n", parts[1])
		return
	}

	symbol := parts[2]
	var side types.Side
	switch parts[3] {
	case "BUY":
		side = types.Buy
	case "SELL":
		side = types.Sell
	default:
		fmt.Fprintf(c.errOut, "invalid side: %s\n", parts[3])
		return
	}

	var kind types.Kind
	switch parts[4] {
	case "LIMIT":
		kind = types.Limit
	case "MARKET":
		kind = types.Market
	default:
		fmt.Fprintf(c.errOut, "invalid type: %s\n", parts[4])
		return
	}

	priceDec, err := decimal.NewFromString(parts[5])
	if err != nil {
		fmt.Fprintf(c.errOut, "invalid price: %s\n", parts[5])
		return
	}
	qty, err := strconv.ParseUint(parts[6], 10, 32)
	if err != nil {
		fmt.Fprintf(c.errOut, "invalid quantity: %s\n", parts[6])
		return
	}

	order := &types.Order{
		OrderID:  orderID,
		Symbol:   symbol,
		Side:     side,
		Kind:     kind,
		Price:    types.TicksFromDecimal(priceDec),
		Quantity: uint32(qty),
		// Every order typed at the terminal belongs to the operator's own
		// book, so its fills feed the PositionLedger.
		UserOwned: true,
	}

	trades, err := c.pipe.Submit(order)
	if err != nil {
		fmt.Fprintf(c.errOut, "rejected: %v\n", err)
		return
	}
	for _, t := range trades {
		fmt.Fprintln(c.out, t.String())
	}
}

func (c *CLI) handleCancel(parts []string) {
	if len(parts) != 3 {
		fmt.Fprintln(c.errOut, "CANCEL requires: CANCEL,<SYMBOL>,<orderId>")
		return
	}
	orderID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		fmt.Fprintf(c.errOut, "invalid orderId: %s\n", parts[2])
		return
	}

	outcome, err := c.pipe.Cancel(parts[1], orderID)
	if err != nil {
		fmt.Fprintf(c.errOut, "rejected: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "cancel %s,%d -> %s\n", parts[1], orderID, outcome)
}

func (c *CLI) handleSnap(line string) {
	parts := splitTrim(line, ',')
	if len(parts) > 1 && parts[1] != "" {
		c.printTop(parts[1])
		return
	}
	for _, symbol := range c.mgr.Symbols() {
		c.printTop(symbol)
	}
}

func (c *CLI) handlePositions() {
	snapshot := c.ledger.Snapshot()
	if len(snapshot) == 0 {
		fmt.Fprintln(c.out, "no positions")
		return
	}
	for _, pos := range snapshot {
		fmt.Fprintln(c.out, pos.String())
	}
}

func (c *CLI) printTop(symbol string) {
	b := c.mgr.Book(symbol)
	if b == nil {
		fmt.Fprintf(c.out, "%s: no book\n", symbol)
		return
	}
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()

	bidStr, askStr := "-", "-"
	if hasBid {
		bidStr = bid.Decimal().String()
	}
	if hasAsk {
		askStr = ask.Decimal().String()
	}
	fmt.Fprintf(c.out, "%s: bid=%s ask=%s\n", symbol, bidStr, askStr)
}
