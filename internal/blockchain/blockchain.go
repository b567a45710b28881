// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
)

// Submitter sends an already signed transaction to the network.
type Submitter interface {
	SubmitRaw(ctx context.Context, signed []byte) (string, error)
}

// Confirmer reports the confirmation state of a submitted transaction.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) (ConfirmationStatus, error)
}

// Client is the chain capability used by the swap pipeline.
type Client interface {
	Submitter
	Confirmer
	Balance(ctx context.Context, address string) (uint64, error)
}
