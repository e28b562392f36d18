package textcli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lobengine/internal/broadcast"
	"lobengine/internal/manager"
	"lobengine/internal/pipeline"
	"lobengine/internal/position"
)

func newTestCLI() (*CLI, *bytes.Buffer, *bytes.Buffer) {
	bc := broadcast.New()
	mgr := manager.New(bc)
	ledger := position.New()
	bc.Register(position.NewSink(ledger))
	pipe := pipeline.New(mgr, ledger, nil)
	var out, errOut bytes.Buffer
	return New(pipe, mgr, ledger, &out, &errOut), &out, &errOut
}

func TestNewOrderPrintsNoTradesWhenResting(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	err := c.Run(strings.NewReader("NEW,1,AAPL,BUY,LIMIT,100.50,10\n"))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "Trading engine CLI")
	assert.NotContains(t, out.String(), "Trade[")
}

func TestNewOrdersCrossAndPrintTrade(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	input := "NEW,1,AAPL,SELL,LIMIT,100,10\nNEW,2,AAPL,BUY,LIMIT,100,10\n"
	err := c.Run(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "Trade[")
}

func TestCommentsAndBlankLinesAreSkipped(t *testing.T) {
	c, _, errOut := newTestCLI()
	defer c.pipe.Stop()

	input := "# a full line comment\n\nNEW,1,AAPL,BUY,LIMIT,10,1 # trailing comment\n"
	err := c.Run(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())
}

func TestMalformedNewReportsErrorAndContinues(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	err := c.Run(strings.NewReader("NEW,notanumber,AAPL,BUY,LIMIT,10,1\nHELP\n"))
	assert.NoError(t, err)
	assert.Contains(t, errOut.String(), "invalid orderId")
	assert.Contains(t, out.String(), "Commands:")
}

func TestCancelRoundTrips(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	input := "NEW,1,AAPL,BUY,LIMIT,100,10\nCANCEL,AAPL,1\n"
	err := c.Run(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "CANCELLED")
}

func TestSnapWithAndWithoutSymbol(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	input := "NEW,1,AAPL,BUY,LIMIT,100,10\nSNAP,AAPL\nSNAP\n"
	err := c.Run(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "AAPL: bid=100")
}

func TestPositionsReflectsCrossedTrade(t *testing.T) {
	c, out, errOut := newTestCLI()
	defer c.pipe.Stop()

	input := "NEW,1,AAPL,SELL,LIMIT,100,10\nNEW,2,AAPL,BUY,LIMIT,100,10\n"
	err := c.Run(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Empty(t, errOut.String())

	assert.Eventually(t, func() bool {
		pos, ok := c.ledger.Snapshot()["AAPL"]
		return ok && pos.Quantity == 0
	}, time.Second, time.Millisecond)

	assert.NoError(t, c.Run(strings.NewReader("POSITIONS\n")))
	assert.Contains(t, out.String(), "Position[sym=AAPL")
}

func TestQuitStopsBeforeEOF(t *testing.T) {
	c, out, _ := newTestCLI()
	defer c.pipe.Stop()

	err := c.Run(strings.NewReader("QUIT\nNEW,1,AAPL,BUY,LIMIT,10,1\n"))
	assert.NoError(t, err)
	assert.NotContains(t, out.String(), "Trade[")
}
