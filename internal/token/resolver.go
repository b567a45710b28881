// internal/token/resolver.go
package token

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultResolveConcurrency = 4

// Source is the remote token catalogue.
type Source interface {
	TokenByMint(ctx context.Context, mint string) (Token, error)
	VerifiedTokens(ctx context.Context) ([]Token, error)
}

// Resolver fills a Store from a remote Source. Each update builds a new
// Registry and swaps it in; readers holding the previous value keep it.
type Resolver struct {
	source      Source
	store       *Store
	logger      *zap.Logger
	concurrency int
}

func NewResolver(source Source, store *Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		source:      source,
		store:       store,
		logger:      logger.Named("token-resolver"),
		concurrency: defaultResolveConcurrency,
	}
}

// Refresh replaces the registry with the verified list, keeping the current
// tokens for mints the list does not mention.
func (r *Resolver) Refresh(ctx context.Context) (*Registry, error) {
	tokens, err := r.source.VerifiedTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch verified tokens: %w", err)
	}

	next := r.store.Load().With(tokens...)
	r.store.Swap(next)

	r.logger.Info("Token registry refreshed", zap.Int("tokens", next.Len()))
	return next, nil
}

// Resolve looks up mints missing from the current registry. Lookups run
// concurrently; a failed lookup is logged and skipped so callers fall back
// to their own decimals.
func (r *Resolver) Resolve(ctx context.Context, mints ...string) (*Registry, error) {
	current := r.store.Load()

	var missing []string
	seen := make(map[string]struct{}, len(mints))
	for _, mint := range mints {
		if _, dup := seen[mint]; dup {
			continue
		}
		seen[mint] = struct{}{}
		if _, ok := current.ByMint(mint); !ok {
			missing = append(missing, mint)
		}
	}
	if len(missing) == 0 {
		return current, nil
	}

	var (
		mu    sync.Mutex
		found []Token
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, mint := range missing {
		g.Go(func() error {
			t, err := r.source.TokenByMint(gCtx, mint)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				r.logger.Debug("Token lookup failed", zap.String("mint", mint), zap.Error(err))
				return nil
			}
			mu.Lock()
			found = append(found, t)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return current, err
	}

	if len(found) == 0 {
		return current, nil
	}

	next := r.store.Load().With(found...)
	r.store.Swap(next)

	r.logger.Debug("Resolved unknown mints",
		zap.Int("requested", len(missing)),
		zap.Int("resolved", len(found)))
	return next, nil
}
