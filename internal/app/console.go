// internal/app/console.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rovshanmuradov/jupiter-swap/internal/amount"
	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain"
	"github.com/rovshanmuradov/jupiter-swap/internal/config"
	"github.com/rovshanmuradov/jupiter-swap/internal/events"
	"github.com/rovshanmuradov/jupiter-swap/internal/quotesync"
	"github.com/rovshanmuradov/jupiter-swap/internal/route"
	"github.com/rovshanmuradov/jupiter-swap/internal/session"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
	"github.com/rovshanmuradov/jupiter-swap/internal/transaction"
)

const consoleHelp = `commands:
  in <amount>       edit the amount to sell
  out <amount>      edit the amount to receive
  sell <token>      change the token to sell (symbol or mint)
  buy <token>       change the token to receive
  flip              swap the direction of the pair
  slippage <bps>    set execution slippage
  route             fetch the route now
  swap              execute the accepted route
  show              print the form
  quit              leave`

var errQuit = errors.New("quit")

// ResolveFunc finds a token by symbol or mint.
type ResolveFunc func(ctx context.Context, ref string) (token.Token, error)

// Console drives a session from line commands and prints its events.
type Console struct {
	session   *session.Session
	signer    transaction.Signer
	submitter blockchain.Submitter
	confirmer blockchain.Confirmer
	resolve   ResolveFunc

	mu  sync.Mutex
	out io.Writer
}

func NewConsole(s *session.Session, signer transaction.Signer, submitter blockchain.Submitter, confirmer blockchain.Confirmer, resolve ResolveFunc, out io.Writer) *Console {
	return &Console{
		session:   s,
		signer:    signer,
		submitter: submitter,
		confirmer: confirmer,
		resolve:   resolve,
		out:       out,
	}
}

// Subscribe prints quote, route and transaction events published on bus.
func (c *Console) Subscribe(bus *events.Bus) events.Subscription {
	return bus.SubscribeFunc(events.AllEvents, c.handleEvent)
}

func (c *Console) handleEvent(_ context.Context, e events.Event) error {
	switch ev := e.(type) {
	case events.QuoteAppliedEvent:
		c.printf("~ %s amount: %s\n", ev.Field, ev.Amount)
	case events.RouteAcceptedEvent:
		c.printf("~ route: %s out over %d hop(s), impact %s\n", ev.TotalOut, ev.Hops, ev.PriceImpact)
	case events.RouteFailedEvent:
		c.printf("~ %v\n", ev.Error)
	}
	return nil
}

// Run reads commands from in until quit, EOF or ctx ends.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.printf("%s\n", consoleHelp)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if err := c.Exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.printf("! %v\n", err)
			}
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s needs an argument", fields[0])
		}
		return fields[1], nil
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "in", "out":
		raw, err := arg()
		if err != nil {
			return err
		}
		value, err := amount.Parse(raw)
		if err != nil {
			return err
		}
		side := quotesync.SideInput
		if cmd == "out" {
			side = quotesync.SideOutput
		}
		c.session.EditAmount(side, value)
	case "sell", "buy":
		ref, err := arg()
		if err != nil {
			return err
		}
		t, err := c.resolve(ctx, ref)
		if err != nil {
			return err
		}
		if cmd == "sell" {
			c.session.SetInputToken(t)
		} else {
			c.session.SetOutputToken(t)
		}
		c.printForm()
	case "flip":
		c.session.SwapTokens()
		c.printForm()
	case "slippage":
		raw, err := arg()
		if err != nil {
			return err
		}
		bps, err := strconv.ParseUint(raw, 10, 16)
		if err != nil || bps > config.MaxSlippageBps {
			return fmt.Errorf("invalid slippage %q", raw)
		}
		c.session.SetSlippage(uint16(bps))
	case "route":
		r, err := c.session.RefreshRoute(ctx)
		if err != nil {
			return err
		}
		c.printf("%s", FormatRoute(r))
	case "swap":
		return c.swap(ctx)
	case "show":
		c.printForm()
	case "help":
		c.printf("%s\n", consoleHelp)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (c *Console) swap(ctx context.Context) error {
	updates, err := c.session.Execute(ctx, c.signer, c.submitter, c.confirmer)
	if err != nil {
		return err
	}
	for state := range updates {
		c.printf("* %s\n", state)
		if state.Status == transaction.StatusConfirmed {
			c.printf("  %s\n", transaction.ExplorerURL(state.Signature))
		}
	}
	return nil
}

func (c *Console) printForm() {
	snap := c.session.Snapshot()
	c.printf("%s %s -> %s %s (slippage %d bps, tx %s)\n",
		snap.Amount, snap.InputToken.Symbol,
		snap.OutputAmount, snap.OutputToken.Symbol,
		snap.SlippageBps, snap.Tx)
	if snap.RouteErr != nil {
		c.printf("route: %v\n", snap.RouteErr)
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// FormatRoute renders a route as one line per hop.
func FormatRoute(r *route.Processed) string {
	if r == nil {
		return "no route\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "total out: %s (price impact %s)\n", r.TotalOut, r.PriceImpact)
	for i, hop := range r.Hops {
		fmt.Fprintf(&b, "  %d. %s %s -> %s %s via %s (fee %s%%, %d%%)\n",
			i+1, hop.InAmount, hop.From, hop.OutAmount, hop.To, hop.AMM,
			hop.FeePercent.StringFixed(4), hop.Percent)
	}
	return b.String()
}
