package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	jupMint  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

const twoHopQuote = `{
  "inputMint": "So11111111111111111111111111111111111111112",
  "inAmount": "1000000000",
  "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
  "outAmount": "150000000",
  "otherAmountThreshold": "149250000",
  "swapMode": "ExactIn",
  "slippageBps": 50,
  "platformFee": null,
  "priceImpactPct": "0.0012",
  "routePlan": [
    {"swapInfo": {"ammKey": "pool1", "label": "Whirlpool", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "inAmount": "1000000000", "outAmount": "200000000", "feeAmount": "2500000", "feeMint": "So11111111111111111111111111111111111111112"}, "percent": 100},
    {"swapInfo": {"ammKey": "pool2", "label": "Meteora DLMM", "inputMint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "200000000", "outAmount": "150000000", "feeAmount": "0", "feeMint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"}, "percent": 100}
  ],
  "contextSlot": 299999999,
  "timeTaken": 0.012
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/"}, zaptest.NewLogger(t))
}

func TestGetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, solMint, q.Get("inputMint"))
		assert.Equal(t, usdcMint, q.Get("outputMint"))
		assert.Equal(t, "1000000000", q.Get("amount"))
		assert.Equal(t, "50", q.Get("slippageBps"))
		assert.Equal(t, "true", q.Get("restrictIntermediateTokens"))

		_, _ = io.WriteString(w, twoHopQuote)
	})

	quote, err := client.GetQuote(context.Background(), QuoteRequest{
		InputMint:   solMint,
		OutputMint:  usdcMint,
		Amount:      "1000000000",
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "150000000", quote.OutAmount)
	assert.Equal(t, "0.0012", quote.PriceImpactPct)
	require.Len(t, quote.RoutePlan, 2)
	assert.Equal(t, "Whirlpool", quote.RoutePlan[0].SwapInfo.Label)
	assert.NotEmpty(t, quote.Raw)
}

func TestGetQuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, ErrNetwork},
		{"rate limited", http.StatusTooManyRequests, `slow down`, ErrNetwork},
		{"empty body", http.StatusOK, ``, ErrInvalidQuote},
		{"null body", http.StatusOK, `null`, ErrInvalidQuote},
		{"garbage", http.StatusOK, `{not json`, ErrInvalidQuote},
		{"empty route plan", http.StatusOK, `{"inputMint":"a","outputMint":"b","outAmount":"1","routePlan":[]}`, ErrInvalidQuote},
		{"broken route chain", http.StatusOK, `{"inputMint":"a","outputMint":"b","outAmount":"1","routePlan":[{"swapInfo":{"inputMint":"a","outputMint":"c"}}]}`, ErrInvalidQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.GetQuote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", Amount: "1"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetQuoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := client.GetQuote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", Amount: "1"})

	assert.ErrorIs(t, err, ErrNetwork)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quote", apiErr.Op)
}

func TestBuildSwap(t *testing.T) {
	txBytes := []byte{1, 2, 3, 4, 5}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/swap/v1/quote" {
			_, _ = io.WriteString(w, twoHopQuote)
			return
		}

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/swap/v1/swap", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			QuoteResponse             map[string]interface{} `json:"quoteResponse"`
			UserPublicKey             string                 `json:"userPublicKey"`
			DynamicComputeUnitLimit   bool                   `json:"dynamicComputeUnitLimit"`
			DynamicSlippage           bool                   `json:"dynamicSlippage"`
			PrioritizationFeeLamports struct {
				PriorityLevelWithMaxLamports struct {
					MaxLamports   uint64 `json:"maxLamports"`
					PriorityLevel string `json:"priorityLevel"`
				} `json:"priorityLevelWithMaxLamports"`
			} `json:"prioritizationFeeLamports"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "150000000", body.QuoteResponse["outAmount"])
		assert.Equal(t, float64(299999999), body.QuoteResponse["contextSlot"])
		assert.Equal(t, "user-address", body.UserPublicKey)
		assert.False(t, body.DynamicComputeUnitLimit)
		assert.True(t, body.DynamicSlippage)
		assert.Equal(t, uint64(500_000), body.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.MaxLamports)
		assert.Equal(t, "high", body.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.PriorityLevel)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"swapTransaction":           base64.StdEncoding.EncodeToString(txBytes),
			"lastValidBlockHeight":      279000000,
			"prioritizationFeeLamports": 4200,
			"computeUnitLimit":          180000,
		})
	})

	quote, err := client.GetQuote(context.Background(), QuoteRequest{InputMint: solMint, OutputMint: usdcMint, Amount: "1000000000"})
	require.NoError(t, err)

	swap, err := client.BuildSwap(context.Background(), quote, "user-address", PriorityConfig{
		DynamicComputeUnitLimit: false,
		DynamicSlippage:         true,
		PriorityLevel:           PriorityHigh,
		MaxLamports:             500_000,
	})
	require.NoError(t, err)

	assert.Equal(t, txBytes, swap.Transaction)
	assert.Equal(t, uint64(279000000), swap.LastValidBlockHeight)
	assert.Equal(t, uint64(4200), swap.PrioritizationFeeLamports)
	assert.Equal(t, uint64(180000), swap.ComputeUnitLimit)
}

func TestBuildSwapRejectsPriorityBeforeSending(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	quote := &Quote{
		InputMint:  solMint,
		OutputMint: usdcMint,
		OutAmount:  "1",
		RoutePlan:  []RoutePlan{{SwapInfo: SwapInfo{InputMint: solMint, OutputMint: usdcMint}}},
	}

	_, err := client.BuildSwap(context.Background(), quote, "user", PriorityConfig{PriorityLevel: "extreme"})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = client.BuildSwap(context.Background(), quote, "user", PriorityConfig{
		PriorityLevel: PriorityVeryHigh,
		MaxLamports:   DefaultMaxPriorityFeeLamports + 1,
	})
	assert.ErrorIs(t, err, ErrInvalidPriority)
	assert.Zero(t, calls)
}

func TestBuildSwapInvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing transaction", `{"lastValidBlockHeight": 1}`},
		{"bad base64", `{"swapTransaction": "%%%not-base64"}`},
		{"empty", ``},
	}

	quote := &Quote{
		InputMint:  solMint,
		OutputMint: usdcMint,
		OutAmount:  "1",
		RoutePlan:  []RoutePlan{{SwapInfo: SwapInfo{InputMint: solMint, OutputMint: usdcMint}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.BuildSwap(context.Background(), quote, "user", DefaultPriorityConfig())
			assert.ErrorIs(t, err, ErrInvalidQuote)
		})
	}
}

func TestTokenLookups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/v1/token/" + jupMint:
			_, _ = io.WriteString(w, `{"address":"`+jupMint+`","name":"Jupiter","symbol":"JUP","decimals":6}`)
		case "/tokens/v1/tagged/verified":
			_, _ = io.WriteString(w, `[{"address":"`+jupMint+`","symbol":"JUP","decimals":6},{"address":"","symbol":"BAD"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	jup, err := client.TokenByMint(context.Background(), jupMint)
	require.NoError(t, err)
	assert.Equal(t, "JUP", jup.Symbol)
	assert.Equal(t, uint8(6), jup.Decimals)

	_, err = client.TokenByMint(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	verified, err := client.VerifiedTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.Equal(t, jupMint, verified[0].Mint)
}

func TestParsePriorityLevel(t *testing.T) {
	for _, level := range []string{"medium", "high", "veryHigh"} {
		got, err := ParsePriorityLevel(level)
		require.NoError(t, err)
		assert.Equal(t, PriorityLevel(level), got)
	}

	_, err := ParsePriorityLevel("low")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}
