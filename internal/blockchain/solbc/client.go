// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain"
)

// Client is a thin adapter over the solana-go RPC client.
type Client struct {
	rpc      *rpc.Client
	analyzer *ErrorAnalyzer
	logger   *zap.Logger
}

// NewClient creates a client for rpcURL.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	logger = logger.Named("solbc-client")
	return &Client{
		rpc:      rpc.New(rpcURL),
		analyzer: NewErrorAnalyzer(logger),
		logger:   logger,
	}
}

// SubmitRaw sends a signed, serialized transaction and returns its signature.
// Preflight runs at confirmed commitment; the node does not retry.
func (c *Client) SubmitRaw(ctx context.Context, signed []byte) (string, error) {
	maxRetries := uint(0)
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, signed, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		analysis := c.analyzer.AnalyzeRPCError(err)
		c.logger.Error("SendRawTransaction error",
			zap.Error(err),
			zap.Any("analysis", analysis))
		return "", fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Debug("Transaction submitted", zap.String("signature", sig.String()))
	return sig.String(), nil
}

// Confirm checks the signature once. An unknown signature is reported as
// pending; confirmed and finalized both count as confirmed.
func (c *Client) Confirm(ctx context.Context, signature string) (blockchain.ConfirmationStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return blockchain.ConfirmationStatus{}, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return blockchain.ConfirmationStatus{}, err
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return blockchain.ConfirmationStatus{}, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return blockchain.ConfirmationStatus{
			Err: &blockchain.TransactionError{Signature: signature, Detail: status.Err},
		}, nil
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return blockchain.ConfirmationStatus{Confirmed: true}, nil
	default:
		return blockchain.ConfirmationStatus{}, nil
	}
}

// Balance returns the lamport balance of address.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}

	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

var _ blockchain.Client = (*Client)(nil)
