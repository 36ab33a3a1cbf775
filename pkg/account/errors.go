package account

import (
	"errors"
	"fmt"
	"strings"
)

// Account store and balance errors.
// Stores and the transfer coordinator wrap these with %w so callers can use errors.Is.
var (
	// ErrDuplicateAccountID is returned by Create when the id is already taken
	ErrDuplicateAccountID = errors.New("account: duplicate account id")

	// ErrAccountNotFound is returned when an id has no account
	ErrAccountNotFound = errors.New("account: not found")

	// ErrInsufficientFunds is returned when a debit would drive the balance below zero
	ErrInsufficientFunds = errors.New("account: insufficient funds")

	// ErrInvalidAccountID is returned for empty, oversized or malformed ids
	ErrInvalidAccountID = errors.New("account: invalid account id")

	// ErrInvalidAmount is returned for negative debit or credit amounts
	ErrInvalidAmount = errors.New("account: invalid amount")

	// ErrStoreClosed is returned by a store after Close
	ErrStoreClosed = errors.New("account: store closed")
)

// DuplicateAccountError carries the rejected id so transports can echo it back.
type DuplicateAccountError struct {
	ID string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("Account id %s already exists!", e.ID)
}

// Unwrap lets errors.Is match ErrDuplicateAccountID.
func (e *DuplicateAccountError) Unwrap() error {
	return ErrDuplicateAccountID
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsDuplicate reports whether err means the account id is already taken.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateAccountID)
}

// IsInsufficientFunds reports whether err is a balance check failure.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// ClassifyError returns a short label for err, suitable for metrics.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrDuplicateAccountID):
		return "duplicate_account"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidAccountID):
		return "invalid_account_id"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrStoreClosed):
		return "store_closed"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "canceled"):
		return "canceled"
	default:
		return "other"
	}
}

// WrapError adds the store name and operation to err.
func WrapError(err error, store string, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("account store %s %s: %w", store, operation, err)
}
