// Package notify delivers post-transfer notifications to account holders.
//
// Delivery is best-effort: a Notifier never reports failure to its caller,
// and a transfer's outcome never depends on it.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the side of the transfer a notification is addressed to.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Notification is one message to one account holder about one transfer.
type Notification struct {
	AccountID     string          `json:"accountId"`
	Role          Role            `json:"role"`
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	Counterparty  string          `json:"counterparty"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Notifier accepts notifications. It must not block for long and must not panic.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// Sink is a delivery backend. Unlike Notifier it reports errors, which the
// Dispatcher counts and logs.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
	Name() string
	Close() error
}

// Message returns the text shown to the account holder.
func Message(role Role, completed bool, currency string, amount decimal.Decimal, counterparty string) string {
	amt := FormatAmount(amount)
	switch {
	case completed && role == RoleSender:
		return fmt.Sprintf("You have transferred %s %s to account %s", currency, amt, counterparty)
	case completed:
		return fmt.Sprintf("You have received %s %s from account %s", currency, amt, counterparty)
	case role == RoleSender:
		return fmt.Sprintf("Transaction Declined: %s %s to account %s", currency, amt, counterparty)
	default:
		return fmt.Sprintf("Transaction Declined: %s %s from account %s", currency, amt, counterparty)
	}
}

// FormatAmount renders amount keeping its scale, so 100.00 stays "100.00".
func FormatAmount(amount decimal.Decimal) string {
	if exp := amount.Exponent(); exp < 0 {
		return amount.StringFixed(-exp)
	}
	return amount.String()
}
