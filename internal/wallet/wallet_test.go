package wallet

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(key.String())
	require.NoError(t, err)
	return w
}

// unsignedTransfer serializes a transaction the way the aggregator returns
// it: one zeroed signature slot for the fee payer.
func unsignedTransfer(t *testing.T, payer solana.PublicKey) []byte {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1000, payer, solana.SystemProgramID).Build(),
		},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)

	tx.Signatures = make([]solana.Signature, 1)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestNewWallet(t *testing.T) {
	w := newTestWallet(t)
	assert.True(t, w.Connected())
	assert.Equal(t, w.PublicKey.String(), w.Address())

	_, err := NewWallet("not base58 0OIl")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewWallet("3yZe7d")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNilWalletIsNotConnected(t *testing.T) {
	var w *Wallet
	assert.False(t, w.Connected())
	assert.Empty(t, w.Address())
}

func TestSignTransaction(t *testing.T) {
	w := newTestWallet(t)

	signed, err := w.SignTransaction(context.Background(), unsignedTransfer(t, w.PublicKey))
	require.NoError(t, err)

	tx, err := solana.TransactionFromBytes(signed)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.False(t, tx.Signatures[0].IsZero())
	assert.NoError(t, tx.VerifySignatures())
}

func TestSignTransactionRejectsForeignPayer(t *testing.T) {
	w := newTestWallet(t)
	other := newTestWallet(t)

	_, err := w.SignTransaction(context.Background(), unsignedTransfer(t, other.PublicKey))
	assert.ErrorIs(t, err, ErrNotFeePayer)
}

func TestSignTransactionRejectsGarbage(t *testing.T) {
	w := newTestWallet(t)

	_, err := w.SignTransaction(context.Background(), []byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestSignTransactionHonorsContext(t *testing.T) {
	w := newTestWallet(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.SignTransaction(ctx, unsignedTransfer(t, w.PublicKey))
	assert.ErrorIs(t, err, context.Canceled)
}
