// internal/blockchain/types.go
package blockchain

import (
	"fmt"
)

// ConfirmationStatus is the result of one confirmation check. A zero value
// means the transaction is not confirmed yet.
type ConfirmationStatus struct {
	Confirmed bool
	// Err is set when the transaction landed but failed on chain.
	Err error
}

// Pending reports whether the check should be repeated.
func (s ConfirmationStatus) Pending() bool {
	return !s.Confirmed && s.Err == nil
}

// TransactionError wraps the error object returned by the node for a failed
// transaction.
type TransactionError struct {
	Signature string
	Detail    interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Detail)
}
