// internal/route/route.go
package route

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/jupiter-swap/internal/amount"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
)

var hundred = decimal.NewFromInt(100)

// Hop is one display-ready exchange of a route.
type Hop struct {
	From       string
	To         string
	AMM        string
	InputMint  string
	OutputMint string
	InAmount   string
	OutAmount  string
	FeeAmount  string
	FeePercent decimal.Decimal
	Percent    int
}

// Processed is a quote prepared for display. A new value is built for every
// accepted quote.
type Processed struct {
	Hops        []Hop
	PriceImpact string
	TotalOut    string
	Quote       *jupiter.Quote
}

// Process turns a raw quote into hops with token symbols, human amounts and
// per-hop fee percentages. Hop decimals come from the registry; unknown mints
// use the decimals of the requested input or output token.
func Process(quote *jupiter.Quote, input, output token.Token, registry *token.Registry) (*Processed, error) {
	if err := quote.Validate(); err != nil {
		return nil, err
	}

	hops := make([]Hop, 0, len(quote.RoutePlan))
	for i, plan := range quote.RoutePlan {
		hop, err := processHop(plan, input, output, registry)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		hops = append(hops, hop)
	}

	totalOut, err := amount.ToDecimal(quote.OutAmount, output.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: out amount: %v", jupiter.ErrInvalidQuote, err)
	}

	return &Processed{
		Hops:        hops,
		PriceImpact: quote.PriceImpactPct,
		TotalOut:    totalOut,
		Quote:       quote,
	}, nil
}

func processHop(plan jupiter.RoutePlan, input, output token.Token, registry *token.Registry) (Hop, error) {
	info := plan.SwapInfo

	inDecimals := decimalsFor(registry, info.InputMint, input.Decimals)
	outDecimals := decimalsFor(registry, info.OutputMint, output.Decimals)

	inAmount, err := displayAmount(info.InAmount, inDecimals)
	if err != nil {
		return Hop{}, fmt.Errorf("in amount: %w", err)
	}
	outAmount, err := displayAmount(info.OutAmount, outDecimals)
	if err != nil {
		return Hop{}, fmt.Errorf("out amount: %w", err)
	}
	feeAmount, err := displayAmount(info.FeeAmount, inDecimals)
	if err != nil {
		return Hop{}, fmt.Errorf("fee amount: %w", err)
	}
	feePercent, err := FeePercent(info.FeeAmount, info.InAmount)
	if err != nil {
		return Hop{}, err
	}

	return Hop{
		From:       registry.Symbol(info.InputMint),
		To:         registry.Symbol(info.OutputMint),
		AMM:        info.Label,
		InputMint:  info.InputMint,
		OutputMint: info.OutputMint,
		InAmount:   inAmount,
		OutAmount:  outAmount,
		FeeAmount:  feeAmount,
		FeePercent: feePercent,
		Percent:    plan.Percent,
	}, nil
}

// FeePercent returns fee/in*100 over base units, or zero when in is zero.
func FeePercent(fee, in string) (decimal.Decimal, error) {
	feeValue, err := parseBaseUnits(fee)
	if err != nil {
		return decimal.Zero, err
	}
	inValue, err := parseBaseUnits(in)
	if err != nil {
		return decimal.Zero, err
	}
	if inValue.IsZero() {
		return decimal.Zero, nil
	}
	return feeValue.Div(inValue).Mul(hundred), nil
}

func decimalsFor(registry *token.Registry, mint string, fallback uint8) uint8 {
	if t, ok := registry.ByMint(mint); ok {
		return t.Decimals
	}
	return fallback
}

// Missing amounts in a hop are treated as zero.
func displayAmount(baseUnits string, decimals uint8) (string, error) {
	if baseUnits == "" {
		baseUnits = "0"
	}
	out, err := amount.ToDecimal(baseUnits, decimals)
	if err != nil {
		return "", fmt.Errorf("%w: %v", jupiter.ErrInvalidQuote, err)
	}
	return out, nil
}

func parseBaseUnits(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := amount.FromBaseUnits(s, 0)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", jupiter.ErrInvalidQuote, err)
	}
	return v, nil
}
