// internal/jupiter/client.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL                = "https://lite-api.jup.ag/"
	DefaultTimeout                = 10 * time.Second
	DefaultMaxPriorityFeeLamports = 1_000_000

	quotePath    = "swap/v1/quote"
	swapPath     = "swap/v1/swap"
	tokenPath    = "tokens/v1/token"
	verifiedPath = "tokens/v1/tagged/verified"

	maxErrorBody = 512
)

// Config configures the aggregator client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxPriorityFeeLamports caps PriorityConfig.MaxLamports.
	MaxPriorityFeeLamports uint64
}

// Client is a stateless wrapper around the Jupiter HTTP API. It never
// retries; a retry is a new call by the caller.
type Client struct {
	baseURL string
	http    *http.Client
	maxFee  uint64
	logger  *zap.Logger
}

// NewClient creates a client. Zero config fields take the defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPriorityFeeLamports == 0 {
		cfg.MaxPriorityFeeLamports = DefaultMaxPriorityFeeLamports
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		maxFee:  cfg.MaxPriorityFeeLamports,
		logger:  logger.Named("jupiter"),
	}
}

// GetQuote fetches the best route for req.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	endpoint, err := c.endpoint(quotePath)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", req.Amount)
	params.Set("slippageBps", strconv.FormatUint(uint64(req.SlippageBps), 10))
	params.Set("restrictIntermediateTokens", "true")

	body, err := c.do(ctx, "quote", http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var quote Quote
	if err := decode(body, &quote); err != nil {
		return nil, err
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	quote.Raw = body

	c.logger.Debug("Quote received",
		zap.String("input_mint", quote.InputMint),
		zap.String("output_mint", quote.OutputMint),
		zap.String("in_amount", quote.InAmount),
		zap.String("out_amount", quote.OutAmount),
		zap.Int("hops", len(quote.RoutePlan)))

	return &quote, nil
}

// BuildSwap asks the aggregator to compose an unsigned transaction for quote.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, userAddress string, priority PriorityConfig) (*SwapTransaction, error) {
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParsePriorityLevel(string(priority.PriorityLevel)); err != nil {
		return nil, err
	}
	if priority.MaxLamports > c.maxFee {
		return nil, fmt.Errorf("%w: max lamports %d exceeds budget %d", ErrInvalidPriority, priority.MaxLamports, c.maxFee)
	}

	quoteBody := quote.Raw
	if len(quoteBody) == 0 {
		encoded, err := json.Marshal(quote)
		if err != nil {
			return nil, fmt.Errorf("%w: encode quote: %v", ErrInvalidQuote, err)
		}
		quoteBody = encoded
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:           quoteBody,
		UserPublicKey:           userAddress,
		DynamicComputeUnitLimit: priority.DynamicComputeUnitLimit,
		DynamicSlippage:         priority.DynamicSlippage,
		PrioritizationFeeLamports: prioritization{
			PriorityLevelWithMaxLamports: priorityLevelWithMax{
				MaxLamports:   priority.MaxLamports,
				PriorityLevel: priority.PriorityLevel,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	endpoint, err := c.endpoint(swapPath)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, "swap", http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp swapResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: no swap transaction in response", ErrInvalidQuote)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode swap transaction: %v", ErrInvalidQuote, err)
	}

	if len(resp.SimulationError) > 0 && string(resp.SimulationError) != "null" {
		c.logger.Warn("Swap build reported a simulation error",
			zap.ByteString("simulation_error", resp.SimulationError))
	}

	return &SwapTransaction{
		Transaction:               raw,
		LastValidBlockHeight:      resp.LastValidBlockHeight,
		PrioritizationFeeLamports: resp.PrioritizationFeeLamports,
		ComputeUnitLimit:          resp.ComputeUnitLimit,
	}, nil
}

func (c *Client) endpoint(path string) (string, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return "", fmt.Errorf("invalid jupiter base url %q: %w", c.baseURL, err)
	}
	return u, nil
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: create request: %v", ErrNetwork, err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
	}

	c.logger.Debug("Jupiter request finished",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Body: string(body), Err: ErrNetwork}
	}

	return body, nil
}

func decode(body []byte, dst interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: empty response", ErrInvalidQuote)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrInvalidQuote, err)
	}
	return nil
}
