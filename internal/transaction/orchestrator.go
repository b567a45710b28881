// internal/transaction/orchestrator.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 30 * time.Second
)

// Builder composes an unsigned swap transaction for a quote.
type Builder interface {
	BuildSwap(ctx context.Context, quote *jupiter.Quote, userAddress string, priority jupiter.PriorityConfig) (*jupiter.SwapTransaction, error)
}

// Signer is the wallet capability.
type Signer interface {
	Connected() bool
	Address() string
	SignTransaction(ctx context.Context, raw []byte) ([]byte, error)
}

// Request is created when the user explicitly executes a route.
type Request struct {
	Quote *jupiter.Quote
	// UserAddress defaults to the signer's address.
	UserAddress string
	Priority    jupiter.PriorityConfig
}

// Config controls confirmation polling.
type Config struct {
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

// Observer is called on every state transition, in order.
type Observer func(State)

// Orchestrator drives one swap at a time through
// Idle -> Pending -> Confirming -> Confirmed | Failed.
type Orchestrator struct {
	builder Builder
	cfg     Config
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	active   bool
	observer Observer
}

func NewOrchestrator(builder Builder, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	return &Orchestrator{
		builder: builder,
		cfg:     cfg,
		logger:  logger.Named("tx-orchestrator"),
	}
}

// SetObserver installs o, replacing any previous observer.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = obs
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Reset returns a terminal state to Idle. It does nothing while an attempt
// is running.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.active || o.state.Status == StatusIdle {
		o.mu.Unlock()
		return
	}
	o.state = State{Status: StatusIdle}
	obs := o.observer
	o.mu.Unlock()

	if obs != nil {
		obs(State{Status: StatusIdle})
	}
}

// Execute starts one attempt and returns a channel carrying each state it
// goes through; the channel is closed after the terminal state. While an
// attempt is running Execute returns ErrExecutionInProgress and changes
// nothing.
func (o *Orchestrator) Execute(ctx context.Context, req Request, signer Signer, submitter blockchain.Submitter, confirmer blockchain.Confirmer) (<-chan State, error) {
	o.mu.Lock()
	if o.active {
		current := o.state
		o.mu.Unlock()
		o.logger.Warn("Execution rejected, attempt in progress",
			zap.Stringer("status", current.Status),
			zap.String("signature", current.Signature))
		return nil, ErrExecutionInProgress
	}
	o.active = true
	o.mu.Unlock()

	updates := make(chan State, 4)
	go o.run(ctx, req, signer, submitter, confirmer, updates)
	return updates, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, signer Signer, submitter blockchain.Submitter, confirmer blockchain.Confirmer, updates chan<- State) {
	defer close(updates)

	fail := func(sig string, err error) {
		o.logger.Warn("Swap failed", zap.String("signature", sig), zap.Error(err))
		o.transition(updates, State{Status: StatusFailed, Signature: sig, Reason: reasonFor(err), Err: err})
	}

	if signer == nil || !signer.Connected() || signer.Address() == "" {
		fail("", ErrWalletNotConnected)
		return
	}
	if req.Quote == nil {
		fail("", fmt.Errorf("%w: no route to execute", jupiter.ErrInvalidQuote))
		return
	}
	user := req.UserAddress
	if user == "" {
		user = signer.Address()
	}

	swap, err := o.builder.BuildSwap(ctx, req.Quote, user, req.Priority)
	if err != nil {
		fail("", fmt.Errorf("build swap: %w", err))
		return
	}
	o.logger.Debug("Swap transaction built",
		zap.Uint64("last_valid_block_height", swap.LastValidBlockHeight),
		zap.Uint64("priority_fee_lamports", swap.PrioritizationFeeLamports),
		zap.Uint64("compute_unit_limit", swap.ComputeUnitLimit))

	signed, err := signer.SignTransaction(ctx, swap.Transaction)
	if err != nil {
		fail("", fmt.Errorf("%w: %v", ErrSigningRejected, err))
		return
	}

	sig, err := submitter.SubmitRaw(ctx, signed)
	if err != nil {
		fail("", fmt.Errorf("%w: %v", ErrSubmission, err))
		return
	}

	o.logger.Info("Swap submitted", zap.String("signature", sig))
	o.transition(updates, State{Status: StatusPending, Signature: sig})
	o.transition(updates, State{Status: StatusConfirming, Signature: sig})

	if err := o.awaitConfirmation(ctx, confirmer, sig); err != nil {
		fail(sig, err)
		return
	}

	o.logger.Info("Swap confirmed", zap.String("signature", sig))
	o.transition(updates, State{Status: StatusConfirmed, Signature: sig})
}

// awaitConfirmation polls at a constant interval until the transaction is
// confirmed, fails on chain, the timeout elapses or ctx ends. RPC errors
// during polling are retried. The timeout also bounds each status request.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, confirmer blockchain.Confirmer, sig string) error {
	pollCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()

	op := func() (struct{}, error) {
		status, err := confirmer.Confirm(pollCtx, sig)
		if err != nil {
			o.logger.Debug("Confirmation check failed", zap.String("signature", sig), zap.Error(err))
			return struct{}{}, err
		}
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrConfirmationFailed, status.Err))
		}
		if !status.Confirmed {
			return struct{}{}, errNotConfirmed
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(pollCtx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(o.cfg.PollInterval)),
		backoff.WithMaxElapsedTime(o.cfg.ConfirmTimeout))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConfirmationFailed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w after %s: %v", ErrConfirmationTimeout, o.cfg.ConfirmTimeout, err)
	}
}

func (o *Orchestrator) transition(updates chan<- State, next State) {
	o.mu.Lock()
	o.state = next
	if next.Status.Terminal() {
		o.active = false
	}
	obs := o.observer
	o.mu.Unlock()

	if obs != nil {
		obs(next)
	}
	updates <- next
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrWalletNotConnected):
		return "wallet not connected"
	case errors.Is(err, ErrSigningRejected):
		return "signing rejected"
	case errors.Is(err, ErrSubmission):
		return err.Error()
	case errors.Is(err, ErrConfirmationTimeout):
		return "confirmation timed out"
	case errors.Is(err, ErrConfirmationFailed):
		return "transaction failed on chain"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return err.Error()
	}
}
