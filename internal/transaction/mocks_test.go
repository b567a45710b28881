// internal/transaction/mocks_test.go
package transaction

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/jupiter-swap/internal/blockchain"
	"github.com/rovshanmuradov/jupiter-swap/internal/jupiter"
)

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) BuildSwap(ctx context.Context, quote *jupiter.Quote, userAddress string, priority jupiter.PriorityConfig) (*jupiter.SwapTransaction, error) {
	args := m.Called(ctx, quote, userAddress, priority)
	swap, _ := args.Get(0).(*jupiter.SwapTransaction)
	return swap, args.Error(1)
}

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Connected() bool {
	return m.Called().Bool(0)
}

func (m *MockSigner) Address() string {
	return m.Called().String(0)
}

func (m *MockSigner) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	args := m.Called(ctx, raw)
	signed, _ := args.Get(0).([]byte)
	return signed, args.Error(1)
}

type MockChain struct {
	mock.Mock
}

func (m *MockChain) SubmitRaw(ctx context.Context, signed []byte) (string, error) {
	args := m.Called(ctx, signed)
	return args.String(0), args.Error(1)
}

func (m *MockChain) Confirm(ctx context.Context, signature string) (blockchain.ConfirmationStatus, error) {
	args := m.Called(ctx, signature)
	return args.Get(0).(blockchain.ConfirmationStatus), args.Error(1)
}
