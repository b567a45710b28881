// internal/transaction/state.go
package transaction

import "fmt"

const explorerTxURL = "https://solscan.io/tx/"

// Status is the lifecycle position of one execution attempt.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusConfirming
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusConfirming:
		return "confirming"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition follows s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// State is one value of the transaction lifecycle. Signature is set from
// Pending on; a Failed state carries Reason and Err, and Signature when the
// transaction was submitted.
type State struct {
	Status    Status
	Signature string
	Reason    string
	Err       error
}

// Active reports whether an attempt is in flight.
func (s State) Active() bool {
	return s.Status == StatusPending || s.Status == StatusConfirming
}

func (s State) String() string {
	switch {
	case s.Status == StatusFailed && s.Signature != "":
		return fmt.Sprintf("failed (%s): %s", s.Signature, s.Reason)
	case s.Status == StatusFailed:
		return "failed: " + s.Reason
	case s.Signature != "":
		return fmt.Sprintf("%s (%s)", s.Status, s.Signature)
	default:
		return s.Status.String()
	}
}

// ExplorerURL links a signature on Solscan.
func ExplorerURL(signature string) string {
	return explorerTxURL + signature
}
