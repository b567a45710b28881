// internal/blockchain/solbc/error_analyzer.go
package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError is a program error reported through Anchor's log line.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Analysis summarizes a failed sendTransaction call.
type Analysis struct {
	Type             string       `json:"type"`
	Code             int          `json:"code,omitempty"`
	Message          string       `json:"message"`
	SimulationFailed bool         `json:"simulation_failed,omitempty"`
	Logs             []string     `json:"logs,omitempty"`
	Anchor           *AnchorError `json:"anchor_error,omitempty"`
}

// ErrorAnalyzer extracts preflight details from RPC errors. Jupiter routes
// fail mostly in simulation (slippage exceeded, stale accounts), and the
// logs are the only place the program error shows up.
type ErrorAnalyzer struct {
	logger *zap.Logger
}

func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError inspects err. Non-RPC errors produce a generic analysis.
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) Analysis {
	if err == nil {
		return Analysis{Type: "none"}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return Analysis{Type: "generic_error", Message: err.Error()}
	}

	result := Analysis{
		Type:    "rpc_error",
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
	}
	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return result
	}
	result.SimulationFailed = true

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}
	logs, _ := data["logs"].([]interface{})
	for _, entry := range logs {
		line, ok := entry.(string)
		if !ok {
			continue
		}
		result.Logs = append(result.Logs, line)
		if strings.Contains(line, "AnchorError occurred") {
			anchor := parseAnchorErrorLog(line)
			result.Anchor = &anchor
			ea.logger.Warn("Anchor error detected",
				zap.Int("code", anchor.Code),
				zap.String("name", anchor.Name),
				zap.String("message", anchor.Msg))
		}
	}
	return result
}

// parseAnchorErrorLog reads lines such as
// "Program log: AnchorError occurred. Error Code: SlippageToleranceExceeded. Error Number: 6001. Error Message: Slippage tolerance exceeded."
func parseAnchorErrorLog(line string) AnchorError {
	var result AnchorError
	if v, ok := field(line, "Error Number:"); ok {
		fmt.Sscanf(v, "%d", &result.Code)
	}
	if v, ok := field(line, "Error Code:"); ok {
		result.Name = v
	}
	if v, ok := field(line, "Error Message:"); ok {
		result.Msg = v
	}
	return result
}

func field(line, label string) (string, bool) {
	_, rest, ok := strings.Cut(line, label)
	if !ok {
		return "", false
	}
	value, _, _ := strings.Cut(rest, ".")
	return strings.TrimSpace(value), true
}
