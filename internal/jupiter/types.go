// internal/jupiter/types.go
package jupiter

import (
	"encoding/json"
	"fmt"
)

// QuoteRequest asks for the best route for an exact input amount.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      string // base units
	SlippageBps uint16
}

// SwapInfo is one pool-level exchange inside a route.
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// RoutePlan wraps a hop with the share of the input it routes.
type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// Quote is the aggregator's answer to a QuoteRequest. Raw keeps the body as
// received so it can be echoed back to the swap endpoint untouched.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PlatformFee          json.RawMessage `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlan     `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
	TimeTaken            float64         `json:"timeTaken"`

	Raw json.RawMessage `json:"-"`
}

// Validate checks that the route plan is non-empty and connects the quoted
// input mint to the quoted output mint.
func (q *Quote) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: empty quote", ErrInvalidQuote)
	}
	if q.OutAmount == "" {
		return fmt.Errorf("%w: missing outAmount", ErrInvalidQuote)
	}
	if len(q.RoutePlan) == 0 {
		return fmt.Errorf("%w: empty route plan", ErrInvalidQuote)
	}
	if first := q.RoutePlan[0].SwapInfo; first.InputMint != q.InputMint {
		return fmt.Errorf("%w: route starts at %s, quote input is %s", ErrInvalidQuote, first.InputMint, q.InputMint)
	}
	if last := q.RoutePlan[len(q.RoutePlan)-1].SwapInfo; last.OutputMint != q.OutputMint {
		return fmt.Errorf("%w: route ends at %s, quote output is %s", ErrInvalidQuote, last.OutputMint, q.OutputMint)
	}
	return nil
}

// PriorityLevel selects the fee percentile Jupiter estimates for the swap.
type PriorityLevel string

const (
	PriorityMedium   PriorityLevel = "medium"
	PriorityHigh     PriorityLevel = "high"
	PriorityVeryHigh PriorityLevel = "veryHigh"
)

// ParsePriorityLevel accepts the three levels the swap endpoint recognizes.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	switch level := PriorityLevel(s); level {
	case PriorityMedium, PriorityHigh, PriorityVeryHigh:
		return level, nil
	default:
		return "", fmt.Errorf("%w: unknown priority level %q", ErrInvalidPriority, s)
	}
}

// PriorityConfig controls compute-unit and priority-fee policy of a built swap.
type PriorityConfig struct {
	DynamicComputeUnitLimit bool
	DynamicSlippage         bool
	PriorityLevel           PriorityLevel
	MaxLamports             uint64
}

// DefaultPriorityConfig mirrors what the swap form sends.
func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		DynamicComputeUnitLimit: true,
		DynamicSlippage:         true,
		PriorityLevel:           PriorityVeryHigh,
		MaxLamports:             DefaultMaxPriorityFeeLamports,
	}
}

// SwapTransaction is an unsigned transaction built for a quote.
type SwapTransaction struct {
	Transaction               []byte
	LastValidBlockHeight      uint64
	PrioritizationFeeLamports uint64
	ComputeUnitLimit          uint64
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	DynamicSlippage           bool            `json:"dynamicSlippage"`
	PrioritizationFeeLamports prioritization  `json:"prioritizationFeeLamports"`
}

type prioritization struct {
	PriorityLevelWithMaxLamports priorityLevelWithMax `json:"priorityLevelWithMaxLamports"`
}

type priorityLevelWithMax struct {
	MaxLamports   uint64        `json:"maxLamports"`
	PriorityLevel PriorityLevel `json:"priorityLevel"`
}

type swapResponse struct {
	SwapTransaction           string          `json:"swapTransaction"`
	LastValidBlockHeight      uint64          `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
	ComputeUnitLimit          uint64          `json:"computeUnitLimit"`
	SimulationError           json.RawMessage `json:"simulationError,omitempty"`
}

type tokenResponse struct {
	Address  string   `json:"address"`
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Decimals uint8    `json:"decimals"`
	LogoURI  string   `json:"logoURI"`
	Tags     []string `json:"tags"`
}
