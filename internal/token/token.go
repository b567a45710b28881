// internal/token/token.go
package token

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Token describes an SPL mint as far as swaps are concerned.
type Token struct {
	Mint     string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Well-known mints used as CLI defaults.
var (
	SOL  = Token{Mint: "So11111111111111111111111111111111111111112", Symbol: "SOL", Name: "Solana", Decimals: 9}
	USDC = Token{Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6}
	USDT = Token{Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "Tether USD", Decimals: 6}
)

// Registry is an immutable lookup table of tokens. Updates produce a new
// Registry; existing values are never modified, so a Registry can be shared
// freely between goroutines.
type Registry struct {
	byMint   map[string]Token
	bySymbol map[string]Token
}

// NewRegistry builds a registry. Later tokens win on duplicate mints.
func NewRegistry(tokens ...Token) *Registry {
	r := &Registry{
		byMint:   make(map[string]Token, len(tokens)),
		bySymbol: make(map[string]Token, len(tokens)),
	}
	for _, t := range tokens {
		r.add(t)
	}
	return r
}

// Default returns a registry seeded with the well-known mints.
func Default() *Registry {
	return NewRegistry(SOL, USDC, USDT)
}

func (r *Registry) add(t Token) {
	r.byMint[t.Mint] = t
	if t.Symbol != "" {
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
	}
}

// With returns a new registry containing r's tokens plus the given ones.
func (r *Registry) With(tokens ...Token) *Registry {
	next := NewRegistry(r.Tokens()...)
	for _, t := range tokens {
		next.add(t)
	}
	return next
}

// ByMint looks a token up by mint address.
func (r *Registry) ByMint(mint string) (Token, bool) {
	if r == nil {
		return Token{}, false
	}
	t, ok := r.byMint[mint]
	return t, ok
}

// BySymbol looks a token up by symbol, case-insensitively.
func (r *Registry) BySymbol(symbol string) (Token, bool) {
	if r == nil {
		return Token{}, false
	}
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// Lookup accepts either a symbol or a mint address.
func (r *Registry) Lookup(ref string) (Token, bool) {
	if t, ok := r.BySymbol(ref); ok {
		return t, true
	}
	return r.ByMint(ref)
}

// Symbol returns the token symbol for mint, or the first six characters of
// the mint when the token is unknown.
func (r *Registry) Symbol(mint string) string {
	if t, ok := r.ByMint(mint); ok && t.Symbol != "" {
		return t.Symbol
	}
	if len(mint) > 6 {
		return mint[:6]
	}
	return mint
}

// Len reports the number of distinct mints.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byMint)
}

// Tokens returns all tokens ordered by symbol.
func (r *Registry) Tokens() []Token {
	if r == nil {
		return nil
	}
	out := make([]Token, 0, len(r.byMint))
	for _, t := range r.byMint {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol == out[j].Symbol {
			return out[i].Mint < out[j].Mint
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Store holds the current registry and swaps it atomically on refresh.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore creates a store holding initial (or an empty registry if nil).
func NewStore(initial *Registry) *Store {
	if initial == nil {
		initial = NewRegistry()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Load returns the current registry.
func (s *Store) Load() *Registry {
	return s.current.Load()
}

// Swap installs next and returns the registry it replaced.
func (s *Store) Swap(next *Registry) *Registry {
	if next == nil {
		next = NewRegistry()
	}
	return s.current.Swap(next)
}
