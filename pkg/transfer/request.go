package transfer

import (
	"errors"
	"fmt"
	"time"

	"funds-transfer/pkg/account"

	"github.com/shopspring/decimal"
)

// Status is the terminal state of a transfer.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Outcome messages.
const (
	MessageSuccess  = "Transfer Successful"
	MessageDeclined = "Transfer Declined"
)

// Decline reasons shown to callers.
const (
	ReasonAccountNotFound   = "Sender or Receiver account does not exist"
	ReasonInsufficientFunds = "Insufficient balance in sender's account"
	ReasonLockTimeout       = "Accounts are busy, try again"
	ReasonUnavailable       = "Transfer could not be processed"
)

var (
	// ErrInvalidRequest is returned for malformed requests; no outcome is produced.
	ErrInvalidRequest = errors.New("transfer: invalid request")

	// ErrLockTimeout marks a transfer declined because its account locks
	// were not acquired before the lock timeout or context deadline.
	ErrLockTimeout = errors.New("transfer: account lock not acquired")
)

// Request asks to move Amount from one account to another.
type Request struct {
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// Validate checks the request contract. Zero amounts and from == to are allowed.
func (r Request) Validate() error {
	switch {
	case r.FromAccountID == "":
		return fmt.Errorf("%w: fromAccountId is required", ErrInvalidRequest)
	case r.ToAccountID == "":
		return fmt.Errorf("%w: toAccountId is required", ErrInvalidRequest)
	case r.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	case r.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Outcome is the result of one Transfer call.
type Outcome struct {
	TransactionID string          `json:"transactionId"`
	Status        Status          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Message       string          `json:"message"`
	Reason        string          `json:"reason,omitempty"`

	// Cause is the error behind a FAILURE, for errors.Is checks. Nil on SUCCESS.
	Cause error `json:"-"`
}

// Succeeded reports whether the transfer was applied.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

func reasonFor(cause error) string {
	switch {
	case cause == nil:
		return ""
	case errors.Is(cause, account.ErrAccountNotFound):
		return ReasonAccountNotFound
	case errors.Is(cause, account.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(cause, ErrLockTimeout):
		return ReasonLockTimeout
	default:
		return ReasonUnavailable
	}
}

// ClassifyError returns a short metric label for a decline cause.
func ClassifyError(cause error) string {
	if errors.Is(cause, ErrLockTimeout) {
		return "lock_timeout"
	}
	if errors.Is(cause, ErrInvalidRequest) {
		return "invalid_request"
	}
	if cause == nil {
		return ""
	}
	return account.ClassifyError(cause)
}
