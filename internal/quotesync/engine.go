// internal/quotesync/engine.go
package quotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/amount"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap/internal/route"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
)

const (
	DefaultPriceQuietPeriod = 500 * time.Millisecond
	DefaultRouteQuietPeriod = 1000 * time.Millisecond
	DefaultPriceSlippageBps = 50
	DefaultSlippageBps      = 50
	DefaultRequestTimeout   = 10 * time.Second
)

var (
	// ErrRouteFailed is the user-visible error stored when a route refresh fails.
	ErrRouteFailed = errors.New("failed to fetch route, please try again")

	// ErrNothingToRoute is returned by RefreshRoute when the amount is not
	// positive or both sides hold the same mint.
	ErrNothingToRoute = errors.New("nothing to route")

	// ErrSuperseded is returned by RefreshRoute when a newer edit made its
	// result obsolete before it could be applied.
	ErrSuperseded = errors.New("route superseded by a newer edit")

	ErrClosed = errors.New("quote sync engine closed")
)

// Side names one of the two amount fields.
type Side int

const (
	SideInput Side = iota
	SideOutput
)

func (s Side) String() string {
	if s == SideOutput {
		return "output"
	}
	return "input"
}

// Opposite returns the other field.
func (s Side) Opposite() Side {
	if s == SideOutput {
		return SideInput
	}
	return SideOutput
}

// Quoter is the part of the aggregator client the engine needs.
type Quoter interface {
	GetQuote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.Quote, error)
}

// Config holds the initial form and the engine timings. Zero durations and
// slippages take the package defaults.
type Config struct {
	Input       token.Token
	Output      token.Token
	SlippageBps uint16

	PriceSlippageBps uint16
	PriceQuietPeriod time.Duration
	RouteQuietPeriod time.Duration
	RequestTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.SlippageBps == 0 {
		c.SlippageBps = DefaultSlippageBps
	}
	if c.PriceSlippageBps == 0 {
		c.PriceSlippageBps = DefaultPriceSlippageBps
	}
	if c.PriceQuietPeriod <= 0 {
		c.PriceQuietPeriod = DefaultPriceQuietPeriod
	}
	if c.RouteQuietPeriod <= 0 {
		c.RouteQuietPeriod = DefaultRouteQuietPeriod
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// EventKind classifies engine notifications.
type EventKind int

const (
	QuoteApplied EventKind = iota
	RouteAccepted
	RouteCleared
	RouteFailed
)

func (k EventKind) String() string {
	switch k {
	case QuoteApplied:
		return "quote_applied"
	case RouteAccepted:
		return "route_accepted"
	case RouteCleared:
		return "route_cleared"
	case RouteFailed:
		return "route_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to the Listener after the engine state has changed.
type Event struct {
	Kind   EventKind
	Side   Side            // QuoteApplied: the field that was written
	Amount decimal.Decimal // QuoteApplied: the value written
	Route  *route.Processed
	Err    error
}

// Listener receives engine events. It is called without the engine lock
// held, possibly from timer goroutines.
type Listener func(Event)

// Snapshot is a consistent copy of the form.
type Snapshot struct {
	InputToken   token.Token
	OutputToken  token.Token
	Amount       decimal.Decimal
	OutputAmount decimal.Decimal
	Source       Side
	SlippageBps  uint16
	Route        *route.Processed
	RouteErr     error
}

// Engine keeps the input and output amounts consistent with live quotes
// and maintains the accepted route for the current form.
//
// Every edit, token change and side swap bumps seq. A price refresh is
// applied only if seq and the side's issued sequence still equal the
// sequence it was started with. Route refreshes use their own routeSeq.
type Engine struct {
	quoter Quoter
	tokens *token.Store
	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	price      Debouncer
	routeTimer Debouncer

	mu           sync.Mutex
	input        token.Token
	output       token.Token
	amount       decimal.Decimal
	outputAmount decimal.Decimal
	source       Side
	slippage     uint16
	accepted     *route.Processed
	routeErr     error
	seq          uint64
	issued       [2]uint64
	routeSeq     uint64
	listener     Listener
	closed       bool
}

// NewEngine creates an engine for the pair in cfg. tokens supplies the
// registry used for route hop decimals and symbols.
func NewEngine(cfg Config, quoter Quoter, tokens *token.Store, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	if tokens == nil {
		tokens = token.NewStore(token.Default())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		quoter:   quoter,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger.Named("quote-sync"),
		ctx:      ctx,
		cancel:   cancel,
		input:    cfg.Input,
		output:   cfg.Output,
		slippage: cfg.SlippageBps,
	}
}

// SetListener installs l, replacing any previous listener.
func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// EditAmount records a user edit of one field and schedules a price refresh
// in the direction of that edit.
func (e *Engine) EditAmount(side Side, value decimal.Decimal) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	e.seq++
	seq := e.seq
	e.issued[side] = seq
	e.source = side
	e.setFieldLocked(side, value)

	e.price.Cancel()
	if value.IsPositive() {
		e.price.Arm(e.cfg.PriceQuietPeriod, func() { e.refreshPrice(side, seq) })
	} else {
		e.setFieldLocked(side.Opposite(), decimal.Zero)
	}

	// An output-side edit changes the input amount only once its quote lands,
	// unless it zeroed the input right here.
	var events []Event
	if side == SideInput || !value.IsPositive() {
		events = e.scheduleRouteLocked()
	}
	notify := e.listener
	e.mu.Unlock()

	e.logger.Debug("Amount edited",
		zap.Stringer("side", side),
		zap.String("value", value.String()),
		zap.Uint64("seq", seq))
	emit(notify, events...)
}

// SetToken replaces the token on one side.
func (e *Engine) SetToken(side Side, t token.Token) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	e.seq++
	seq := e.seq
	if side == SideInput {
		e.input = t
	} else {
		e.output = t
	}
	e.routeErr = nil

	current := e.source
	e.price.Cancel()
	if e.fieldLocked(current).IsPositive() && e.input.Mint != e.output.Mint {
		e.issued[current] = seq
		e.price.Arm(e.cfg.PriceQuietPeriod, func() { e.refreshPrice(current, seq) })
	}

	events := e.scheduleRouteLocked()
	notify := e.listener
	e.mu.Unlock()

	e.logger.Debug("Token changed",
		zap.Stringer("side", side),
		zap.String("mint", t.Mint),
		zap.String("symbol", t.Symbol))
	emit(notify, events...)
}

// SwapSides exchanges both tokens and both amounts. Pending refreshes are
// cancelled and in-flight results are discarded.
func (e *Engine) SwapSides() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	e.seq++
	e.input, e.output = e.output, e.input
	e.amount, e.outputAmount = e.outputAmount, e.amount
	e.source = SideInput

	e.price.Cancel()
	e.routeTimer.Cancel()

	var events []Event
	if e.accepted != nil || e.routeErr != nil {
		events = append(events, Event{Kind: RouteCleared})
	}
	e.accepted = nil
	e.routeErr = nil

	events = append(events, e.scheduleRouteLocked()...)
	notify := e.listener
	e.mu.Unlock()

	e.logger.Debug("Sides swapped")
	emit(notify, events...)
}

// SetSlippage sets the execution slippage used for the accepted route.
func (e *Engine) SetSlippage(bps uint16) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.slippage = bps
	events := e.scheduleRouteLocked()
	notify := e.listener
	e.mu.Unlock()

	emit(notify, events...)
}

// RefreshRoute fetches the accepted route now instead of waiting for the
// scheduled refresh.
func (e *Engine) RefreshRoute(ctx context.Context) (*route.Processed, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}

	e.routeTimer.Cancel()
	e.routeSeq++
	seq := e.routeSeq

	if !e.routableLocked() {
		events := e.clearRouteLocked()
		notify := e.listener
		e.mu.Unlock()
		emit(notify, events...)
		return nil, ErrNothingToRoute
	}
	e.mu.Unlock()

	return e.fetchRoute(ctx, seq)
}

// ClearRoute drops the accepted route and any pending route refresh.
func (e *Engine) ClearRoute() {
	e.mu.Lock()
	e.routeTimer.Cancel()
	e.routeSeq++
	events := e.clearRouteLocked()
	notify := e.listener
	e.mu.Unlock()

	emit(notify, events...)
}

// Route returns the accepted route, or nil.
func (e *Engine) Route() *route.Processed {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepted
}

// Snapshot returns a copy of the form.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		InputToken:   e.input,
		OutputToken:  e.output,
		Amount:       e.amount,
		OutputAmount: e.outputAmount,
		Source:       e.source,
		SlippageBps:  e.slippage,
		Route:        e.accepted,
		RouteErr:     e.routeErr,
	}
}

// Close cancels pending refreshes and in-flight requests.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.price.Cancel()
	e.routeTimer.Cancel()
	e.mu.Unlock()

	e.cancel()
}

func (e *Engine) refreshPrice(side Side, seq uint64) {
	e.mu.Lock()
	if e.closed || e.seq != seq || e.source != side {
		e.mu.Unlock()
		e.logger.Debug("Price refresh skipped, form changed", zap.Uint64("seq", seq))
		return
	}
	value := e.fieldLocked(side)
	from, to := e.input, e.output
	if side == SideOutput {
		from, to = e.output, e.input
	}
	e.mu.Unlock()

	base, err := amount.ToBaseUnits(value, from.Decimals)
	if err != nil {
		e.logger.Debug("Price refresh dropped", zap.Error(err))
		return
	}
	if base == "0" {
		e.applyPrice(side, seq, decimal.Zero)
		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.RequestTimeout)
	defer cancel()

	quote, err := e.quoter.GetQuote(ctx, jupiter.QuoteRequest{
		InputMint:   from.Mint,
		OutputMint:  to.Mint,
		Amount:      base,
		SlippageBps: e.cfg.PriceSlippageBps,
	})
	if err != nil {
		e.logger.Debug("Price quote failed",
			zap.Stringer("side", side),
			zap.Uint64("seq", seq),
			zap.Error(err))
		return
	}

	out, err := amount.FromBaseUnits(quote.OutAmount, to.Decimals)
	if err != nil {
		e.logger.Debug("Price quote unusable", zap.Error(err))
		return
	}
	e.applyPrice(side, seq, out)
}

func (e *Engine) applyPrice(side Side, seq uint64, out decimal.Decimal) {
	e.mu.Lock()
	if e.closed || e.seq != seq || e.issued[side] != seq || e.source != side {
		current := e.seq
		e.mu.Unlock()
		e.logger.Debug("Stale price quote discarded",
			zap.Uint64("seq", seq),
			zap.Uint64("current_seq", current))
		return
	}

	target := side.Opposite()
	e.setFieldLocked(target, out)

	events := []Event{{Kind: QuoteApplied, Side: target, Amount: out}}
	if target == SideInput {
		events = append(events, e.scheduleRouteLocked()...)
	}
	notify := e.listener
	e.mu.Unlock()

	emit(notify, events...)
}

func (e *Engine) runScheduledRoute(seq uint64) {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.RequestTimeout)
	defer cancel()

	if _, err := e.fetchRoute(ctx, seq); err != nil && !errors.Is(err, ErrSuperseded) {
		e.logger.Debug("Scheduled route refresh failed", zap.Error(err))
	}
}

func (e *Engine) fetchRoute(ctx context.Context, seq uint64) (*route.Processed, error) {
	e.mu.Lock()
	if e.closed || e.routeSeq != seq {
		e.mu.Unlock()
		return nil, ErrSuperseded
	}
	in, out := e.input, e.output
	value := e.amount
	slippage := e.slippage
	e.mu.Unlock()

	processed, err := e.quoteRoute(ctx, in, out, value, slippage)

	e.mu.Lock()
	if e.closed || e.routeSeq != seq {
		e.mu.Unlock()
		e.logger.Debug("Stale route discarded", zap.Uint64("route_seq", seq))
		return nil, ErrSuperseded
	}

	var event Event
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRouteFailed, err)
		e.accepted = nil
		e.routeErr = err
		event = Event{Kind: RouteFailed, Err: err}
	} else {
		e.accepted = processed
		e.routeErr = nil
		event = Event{Kind: RouteAccepted, Route: processed}
	}
	notify := e.listener
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("Route refresh failed", zap.Error(err))
	} else {
		e.logger.Debug("Route accepted",
			zap.String("total_out", processed.TotalOut),
			zap.Int("hops", len(processed.Hops)))
	}
	emit(notify, event)
	return processed, err
}

func (e *Engine) quoteRoute(ctx context.Context, in, out token.Token, value decimal.Decimal, slippage uint16) (*route.Processed, error) {
	base, err := amount.ToBaseUnits(value, in.Decimals)
	if err != nil {
		return nil, err
	}
	if base == "0" {
		return nil, ErrNothingToRoute
	}

	quote, err := e.quoter.GetQuote(ctx, jupiter.QuoteRequest{
		InputMint:   in.Mint,
		OutputMint:  out.Mint,
		Amount:      base,
		SlippageBps: slippage,
	})
	if err != nil {
		return nil, err
	}
	return route.Process(quote, in, out, e.tokens.Load())
}

// scheduleRouteLocked re-arms the route refresh for the current form, or
// clears the route when there is nothing to route.
func (e *Engine) scheduleRouteLocked() []Event {
	e.routeSeq++
	if !e.routableLocked() {
		e.routeTimer.Cancel()
		return e.clearRouteLocked()
	}
	seq := e.routeSeq
	e.routeTimer.Arm(e.cfg.RouteQuietPeriod, func() { e.runScheduledRoute(seq) })
	return nil
}

func (e *Engine) clearRouteLocked() []Event {
	had := e.accepted != nil || e.routeErr != nil
	e.accepted = nil
	e.routeErr = nil
	if !had {
		return nil
	}
	return []Event{{Kind: RouteCleared}}
}

func (e *Engine) routableLocked() bool {
	return e.amount.IsPositive() && e.input.Mint != e.output.Mint
}

func (e *Engine) fieldLocked(side Side) decimal.Decimal {
	if side == SideOutput {
		return e.outputAmount
	}
	return e.amount
}

func (e *Engine) setFieldLocked(side Side, value decimal.Decimal) {
	if side == SideOutput {
		e.outputAmount = value
	} else {
		e.amount = value
	}
}

func emit(l Listener, events ...Event) {
	if l == nil {
		return
	}
	for _, ev := range events {
		l(ev)
	}
}
