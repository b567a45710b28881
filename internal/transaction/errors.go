// internal/transaction/errors.go
package transaction

import "errors"

var (
	ErrWalletNotConnected  = errors.New("wallet not connected")
	ErrSigningRejected     = errors.New("transaction signing rejected")
	ErrSubmission          = errors.New("transaction submission failed")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
	ErrConfirmationFailed  = errors.New("transaction failed on chain")

	// ErrExecutionInProgress is returned by Execute while another attempt
	// has not reached a terminal state.
	ErrExecutionInProgress = errors.New("swap execution already in progress")

	errNotConfirmed = errors.New("transaction not confirmed yet")
)
