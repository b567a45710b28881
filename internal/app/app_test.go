package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/jupiter-swap/internal/config"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
)

const jupMint = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"

// fakeJupiter serves quotes at 1 SOL = 150 USDC and token lookups for JUP.
func fakeJupiter(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/swap/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		in, ok := new(big.Int).SetString(q.Get("amount"), 10)
		if !ok {
			http.Error(w, "bad amount", http.StatusBadRequest)
			return
		}
		bps, _ := strconv.Atoi(q.Get("slippageBps"))
		out := new(big.Int).Mul(in, big.NewInt(150))
		out.Div(out, big.NewInt(1000))
		if q.Get("inputMint") != token.SOL.Mint {
			out = new(big.Int).Mul(in, big.NewInt(1000))
			out.Div(out, big.NewInt(150))
		}
		quote := map[string]interface{}{
			"inputMint":      q.Get("inputMint"),
			"inAmount":       in.String(),
			"outputMint":     q.Get("outputMint"),
			"outAmount":      out.String(),
			"swapMode":       "ExactIn",
			"slippageBps":    bps,
			"priceImpactPct": "0",
			"routePlan": []interface{}{map[string]interface{}{
				"swapInfo": map[string]interface{}{
					"ammKey":     "pool",
					"label":      "Whirlpool",
					"inputMint":  q.Get("inputMint"),
					"outputMint": q.Get("outputMint"),
					"inAmount":   in.String(),
					"outAmount":  out.String(),
					"feeAmount":  "0",
				},
				"percent": 100,
			}},
		}
		_ = json.NewEncoder(w).Encode(quote)
	})
	mux.HandleFunc("/tokens/v1/token/"+jupMint, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"address":%q,"name":"Jupiter","symbol":"JUP","decimals":6}`, jupMint)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, jupiterURL string) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.JupiterAPIBase = jupiterURL
	cfg.RPCURL = "http://127.0.0.1:1"
	cfg.PrivateKey = ""
	cfg.PriceQuietMs = 10
	cfg.RouteQuietMs = 20
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.jsonl")
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t, fakeJupiter(t).URL), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestNewWithoutWallet(t *testing.T) {
	a := newTestApp(t)

	_, err := a.RequireWallet()
	assert.ErrorIs(t, err, ErrNoWallet)

	priority, err := a.Priority()
	require.NoError(t, err)
	assert.Equal(t, jupiter.PriorityVeryHigh, priority.PriorityLevel)
	assert.Equal(t, uint64(config.DefaultMaxPriorityFeeLamports), priority.MaxLamports)
}

func TestNewWithWallet(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.PrivateKey = key.String()

	a, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	w, err := a.RequireWallet()
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), w.Address())
}

func TestNewRejectsBadKey(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.PrivateKey = "not-a-key"

	_, err := New(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestResolveToken(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	sol, err := a.ResolveToken(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, token.SOL, sol)

	jup, err := a.ResolveToken(ctx, jupMint)
	require.NoError(t, err)
	assert.Equal(t, "JUP", jup.Symbol)
	assert.Equal(t, uint8(6), jup.Decimals)

	_, ok := a.Tokens.Load().ByMint(jupMint)
	assert.True(t, ok, "resolved mint is added to the registry")

	_, err = a.ResolveToken(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsoleSession(t *testing.T) {
	a := newTestApp(t)
	s, err := a.NewSession(token.SOL, token.USDC)
	require.NoError(t, err)

	out := &syncBuffer{}
	console := NewConsole(s, a.Wallet, a.Chain, a.Chain, a.ResolveToken, out)
	console.Subscribe(a.Bus)
	ctx := context.Background()

	require.NoError(t, console.Exec(ctx, "in 2"))
	require.Eventually(t, func() bool {
		return s.Snapshot().OutputAmount.String() == "300"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, console.Exec(ctx, "slippage 100"))
	require.NoError(t, console.Exec(ctx, "route"))
	assert.Contains(t, out.String(), "total out: 300.0000")
	assert.Contains(t, out.String(), "via Whirlpool")

	// No wallet is configured: the attempt fails before anything is built.
	require.NoError(t, console.Exec(ctx, "swap"))
	assert.Contains(t, out.String(), "* failed: wallet not connected")

	require.NoError(t, console.Exec(ctx, "flip"))
	assert.Equal(t, token.USDC, s.Snapshot().InputToken)

	require.NoError(t, console.Exec(ctx, "buy "+jupMint))
	assert.Equal(t, "JUP", s.Snapshot().OutputToken.Symbol)

	assert.Error(t, console.Exec(ctx, "in abc"))
	assert.Error(t, console.Exec(ctx, "slippage 20000"))
	assert.Error(t, console.Exec(ctx, "sell"))
	assert.Error(t, console.Exec(ctx, "dance"))
	assert.True(t, errors.Is(console.Exec(ctx, "quit"), errQuit))

	attempts := a.Journal.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "failed", attempts[0].Status)
}

func TestConsoleRunStopsOnQuit(t *testing.T) {
	a := newTestApp(t)
	s, err := a.NewSession(token.SOL, token.USDC)
	require.NoError(t, err)

	out := &syncBuffer{}
	console := NewConsole(s, nil, a.Chain, a.Chain, a.ResolveToken, out)

	input := strings.NewReader("show\nbogus\nquit\nshow\n")
	require.NoError(t, console.Run(context.Background(), input))

	text := out.String()
	assert.Contains(t, text, "commands:")
	assert.Contains(t, text, "0 SOL -> 0 USDC")
	assert.Contains(t, text, `! unknown command "bogus"`)
	assert.Equal(t, 1, strings.Count(text, "SOL -> "), "nothing runs after quit")
}
