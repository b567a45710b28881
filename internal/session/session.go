// internal/session/session.go
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain"
	"github.com/rovshanmuradov/jupiter-swap/internal/events"
	"github.com/rovshanmuradov/jupiter-swap/internal/journal"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap/internal/quotesync"
	"github.com/rovshanmuradov/jupiter-swap/internal/route"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
	"github.com/rovshanmuradov/jupiter-swap/internal/transaction"
)

// ErrNoRoute is returned by Execute when there is no accepted route.
var ErrNoRoute = errors.New("no route to execute, fetch a route first")

// Swapper is the Jupiter capability a session needs.
type Swapper interface {
	quotesync.Quoter
	transaction.Builder
}

type Config struct {
	Engine      quotesync.Config
	Transaction transaction.Config
	Priority    jupiter.PriorityConfig
}

// Snapshot is the session view of the form and the current execution.
type Snapshot struct {
	quotesync.Snapshot
	Tx transaction.State
}

// Session owns the swap form and its execution state.
type Session struct {
	engine   *quotesync.Engine
	orch     *transaction.Orchestrator
	bus      *events.Bus
	journal  *journal.Journal
	priority jupiter.PriorityConfig
	logger   *zap.Logger

	// mu orders journal bookkeeping between Execute and the observer.
	mu        sync.Mutex
	attemptID string
}

// New wires an engine and an orchestrator around swapper. bus and j are
// optional.
func New(cfg Config, swapper Swapper, tokens *token.Store, bus *events.Bus, j *journal.Journal, logger *zap.Logger) *Session {
	if cfg.Priority.PriorityLevel == "" {
		cfg.Priority = jupiter.DefaultPriorityConfig()
	}
	s := &Session{
		engine:   quotesync.NewEngine(cfg.Engine, swapper, tokens, logger),
		orch:     transaction.NewOrchestrator(swapper, cfg.Transaction, logger),
		bus:      bus,
		journal:  j,
		priority: cfg.Priority,
		logger:   logger.Named("session"),
	}
	s.engine.SetListener(s.onEngineEvent)
	s.orch.SetObserver(s.onTransition)
	return s
}

// EditAmount records an edit of the input or output field.
func (s *Session) EditAmount(side quotesync.Side, value decimal.Decimal) {
	s.engine.EditAmount(side, value)
}

// SetInputToken replaces the sell token and clears a finished execution.
func (s *Session) SetInputToken(t token.Token) {
	s.setToken(quotesync.SideInput, t)
}

// SetOutputToken replaces the buy token and clears a finished execution.
func (s *Session) SetOutputToken(t token.Token) {
	s.setToken(quotesync.SideOutput, t)
}

func (s *Session) setToken(side quotesync.Side, t token.Token) {
	s.engine.SetToken(side, t)
	s.orch.Reset()
	s.publishPair()
}

func (s *Session) SetSlippage(bps uint16) {
	s.engine.SetSlippage(bps)
}

// SwapTokens flips the direction of the pair.
func (s *Session) SwapTokens() {
	s.engine.SwapSides()
	s.orch.Reset()
	s.publishPair()
}

// RefreshRoute fetches the accepted route immediately.
func (s *Session) RefreshRoute(ctx context.Context) (*route.Processed, error) {
	return s.engine.RefreshRoute(ctx)
}

// Execute runs the accepted route through the orchestrator. The returned
// channel carries every state of the attempt and is closed after the
// terminal one.
func (s *Session) Execute(ctx context.Context, signer transaction.Signer, submitter blockchain.Submitter, confirmer blockchain.Confirmer) (<-chan transaction.State, error) {
	snap := s.engine.Snapshot()
	if snap.Route == nil {
		return nil, ErrNoRoute
	}

	req := transaction.Request{Quote: snap.Route.Quote, Priority: s.priority}

	s.mu.Lock()
	defer s.mu.Unlock()

	updates, err := s.orch.Execute(ctx, req, signer, submitter, confirmer)
	if err != nil {
		return nil, err
	}

	s.attemptID = ""
	if s.journal != nil {
		s.attemptID = s.journal.Begin(journal.Attempt{
			InputMint:    snap.InputToken.Mint,
			OutputMint:   snap.OutputToken.Mint,
			InputSymbol:  snap.InputToken.Symbol,
			OutputSymbol: snap.OutputToken.Symbol,
			InAmount:     snap.Amount.String(),
			ExpectedOut:  snap.Route.TotalOut,
			SlippageBps:  snap.SlippageBps,
		})
	}
	s.logger.Info("Executing swap",
		zap.String("attempt_id", s.attemptID),
		zap.String("input", snap.InputToken.Symbol),
		zap.String("output", snap.OutputToken.Symbol),
		zap.String("amount", snap.Amount.String()),
		zap.String("expected_out", snap.Route.TotalOut))

	return updates, nil
}

// Route returns the accepted route, or nil.
func (s *Session) Route() *route.Processed {
	return s.engine.Route()
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{Snapshot: s.engine.Snapshot(), Tx: s.orch.State()}
}

// Close stops the engine. A running execution finishes on its own.
func (s *Session) Close() {
	s.engine.Close()
}

// onTransition runs on the orchestrator goroutine for every state change.
func (s *Session) onTransition(state transaction.State) {
	if state.Status == transaction.StatusIdle {
		s.publish(events.TransactionEvent{
			BaseEvent: events.NewBase(events.TransactionStatusChanged),
			Status:    state.Status.String(),
		})
		return
	}

	s.mu.Lock()
	id := s.attemptID
	if id != "" && s.journal != nil {
		if err := s.journal.Update(id, state.Status.String(), state.Signature, state.Reason, state.Status.Terminal()); err != nil {
			s.logger.Warn("Journal update failed", zap.String("attempt_id", id), zap.Error(err))
		}
	}
	s.mu.Unlock()

	if state.Status == transaction.StatusConfirmed {
		s.engine.ClearRoute()
	}

	s.publish(events.TransactionEvent{
		BaseEvent: events.NewBase(events.TransactionStatusChanged),
		AttemptID: id,
		Status:    state.Status.String(),
		Signature: state.Signature,
		Reason:    state.Reason,
		Error:     state.Err,
	})
}

func (s *Session) onEngineEvent(e quotesync.Event) {
	switch e.Kind {
	case quotesync.QuoteApplied:
		s.publish(events.QuoteAppliedEvent{
			BaseEvent: events.NewBase(events.QuoteApplied),
			Field:     e.Side.String(),
			Amount:    e.Amount.String(),
		})
	case quotesync.RouteAccepted:
		ev := events.RouteAcceptedEvent{BaseEvent: events.NewBase(events.RouteAccepted)}
		if r := e.Route; r != nil {
			ev.TotalOut = r.TotalOut
			ev.PriceImpact = r.PriceImpact
			ev.Hops = len(r.Hops)
			if r.Quote != nil {
				ev.InputMint = r.Quote.InputMint
				ev.OutputMint = r.Quote.OutputMint
				ev.InAmount = r.Quote.InAmount
			}
		}
		s.publish(ev)
	case quotesync.RouteCleared:
		s.publish(events.RouteClearedEvent{BaseEvent: events.NewBase(events.RouteCleared)})
	case quotesync.RouteFailed:
		s.publish(events.RouteFailedEvent{BaseEvent: events.NewBase(events.RouteFailed), Error: e.Err})
	}
}

func (s *Session) publishPair() {
	snap := s.engine.Snapshot()
	s.publish(events.PairChangedEvent{
		BaseEvent:  events.NewBase(events.PairChanged),
		InputMint:  snap.InputToken.Mint,
		OutputMint: snap.OutputToken.Mint,
	})
}

func (s *Session) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Debug("Event not published",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}
