// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/jupiter-swap/internal/config"
	"github.com/rovshanmuradov/jupiter-swap/internal/events"
	"github.com/rovshanmuradov/jupiter-swap/internal/journal"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap/internal/quotesync"
	"github.com/rovshanmuradov/jupiter-swap/internal/session"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
	"github.com/rovshanmuradov/jupiter-swap/internal/transaction"
	"github.com/rovshanmuradov/jupiter-swap/internal/wallet"
)

var (
	ErrNoWallet     = errors.New("private_key is not configured")
	ErrUnknownToken = errors.New("unknown token")
)

// App holds the long-lived components built from the configuration.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Jupiter  *jupiter.Client
	Chain    *solbc.Client
	Tokens   *token.Store
	Resolver *token.Resolver
	Bus      *events.Bus
	Journal  *journal.Journal
	Wallet   *wallet.Wallet

	shutdown *ShutdownHandler
}

// New wires the components for cfg. A missing private key leaves Wallet nil;
// commands that sign report ErrNoWallet.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	tokens := token.NewStore(token.Default())
	client := jupiter.NewClient(jupiter.Config{
		BaseURL:                cfg.JupiterAPIBase,
		Timeout:                cfg.RequestTimeout(),
		MaxPriorityFeeLamports: cfg.MaxPriorityFeeLamports,
	}, logger)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Jupiter:  client,
		Chain:    solbc.NewClient(cfg.RPCURL, logger),
		Tokens:   tokens,
		Resolver: token.NewResolver(client, tokens, logger),
		Bus:      events.NewBus(logger, events.DefaultBufferSize),
		Journal:  journal.New(cfg.JournalPath, logger),
		shutdown: NewShutdownHandler(logger, 5*time.Second),
	}
	a.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.Bus.Shutdown(ctx)
	})

	if cfg.PrivateKey != "" {
		w, err := wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load wallet: %w", err)
		}
		a.Wallet = w
		logger.Info("Wallet loaded", zap.String("address", w.Address()))
	}

	a.Bus.SubscribeFunc(events.TransactionStatusChanged, a.logTransaction)
	return a, nil
}

func (a *App) logTransaction(_ context.Context, e events.Event) error {
	ev, ok := e.(events.TransactionEvent)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("attempt_id", ev.AttemptID),
		zap.String("status", ev.Status),
	}
	if ev.Signature != "" {
		fields = append(fields, zap.String("signature", ev.Signature))
	}
	if ev.Error != nil {
		fields = append(fields, zap.Error(ev.Error))
	}
	a.Logger.Debug("Transaction status changed", fields...)
	return nil
}

// Priority returns the execution priority policy from the configuration.
func (a *App) Priority() (jupiter.PriorityConfig, error) {
	level, err := jupiter.ParsePriorityLevel(a.Config.PriorityLevel)
	if err != nil {
		return jupiter.PriorityConfig{}, err
	}
	return jupiter.PriorityConfig{
		DynamicComputeUnitLimit: a.Config.DynamicComputeUnitLimit,
		DynamicSlippage:         a.Config.DynamicSlippage,
		PriorityLevel:           level,
		MaxLamports:             a.Config.MaxPriorityFeeLamports,
	}, nil
}

// NewSession creates a session for the pair. The session is closed on
// Shutdown.
func (a *App) NewSession(input, output token.Token) (*session.Session, error) {
	priority, err := a.Priority()
	if err != nil {
		return nil, err
	}
	s := session.New(session.Config{
		Engine: quotesync.Config{
			Input:            input,
			Output:           output,
			SlippageBps:      uint16(a.Config.SlippageBps),
			PriceSlippageBps: uint16(a.Config.PriceSlippageBps),
			PriceQuietPeriod: a.Config.PriceQuietPeriod(),
			RouteQuietPeriod: a.Config.RouteQuietPeriod(),
			RequestTimeout:   a.Config.RequestTimeout(),
		},
		Transaction: transaction.Config{
			PollInterval:   a.Config.ConfirmPollInterval(),
			ConfirmTimeout: a.Config.ConfirmTimeout(),
		},
		Priority: priority,
	}, a.Jupiter, a.Tokens, a.Bus, a.Journal, a.Logger)

	a.shutdown.AddFunc("session", func() error {
		s.Close()
		return nil
	})
	return s, nil
}

// ResolveToken finds a token by symbol or mint. Mints missing from the
// registry are looked up through the token API.
func (a *App) ResolveToken(ctx context.Context, ref string) (token.Token, error) {
	return resolveToken(ctx, a.Tokens, a.Resolver, ref)
}

func resolveToken(ctx context.Context, store *token.Store, resolver *token.Resolver, ref string) (token.Token, error) {
	if t, ok := store.Load().Lookup(ref); ok {
		return t, nil
	}
	if _, err := solana.PublicKeyFromBase58(ref); err != nil {
		return token.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, ref)
	}
	registry, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return token.Token{}, err
	}
	if t, ok := registry.ByMint(ref); ok {
		return t, nil
	}
	return token.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, ref)
}

// RequireWallet returns the configured wallet or ErrNoWallet.
func (a *App) RequireWallet() (*wallet.Wallet, error) {
	if a.Wallet == nil {
		return nil, ErrNoWallet
	}
	return a.Wallet, nil
}

// Shutdown closes sessions and flushes the event bus.
func (a *App) Shutdown(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}
