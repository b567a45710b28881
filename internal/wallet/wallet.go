// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	// ErrNotFeePayer is returned when asked to sign a transaction built for
	// another account.
	ErrNotFeePayer = errors.New("transaction fee payer is not this wallet")

	ErrInvalidKey = errors.New("invalid private key")
)

// Wallet is a local Solana keypair that signs swap transactions.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet creates a wallet from a base58-encoded 64-byte private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidKey, err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidKey, len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// Connected reports whether the wallet holds a key.
func (w *Wallet) Connected() bool {
	return w != nil && len(w.PrivateKey) == 64
}

// Address returns the wallet public key, or "" when not connected.
func (w *Wallet) Address() string {
	if !w.Connected() {
		return ""
	}
	return w.PublicKey.String()
}

// SignTransaction decodes a serialized (versioned or legacy) transaction,
// adds this wallet's signature and returns the serialized result. Only
// transactions paying fees from this wallet are signed.
func (w *Wallet) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !w.Connected() {
		return nil, errors.New("wallet has no key")
	}

	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(w.PublicKey) {
		return nil, ErrNotFeePayer
	}

	// Aggregator transactions arrive with zeroed placeholder signatures and
	// this wallet as the only signer.
	tx.Signatures = nil
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	signed, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode signed transaction: %w", err)
	}
	return signed, nil
}

// String returns the wallet public key.
func (w *Wallet) String() string {
	return w.Address()
}
