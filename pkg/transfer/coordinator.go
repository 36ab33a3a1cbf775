package transfer

import (
	"context"
	"fmt"
	"time"

	"funds-transfer/pkg/account"
	"funds-transfer/pkg/logging"
	"funds-transfer/pkg/metrics"
	"funds-transfer/pkg/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator creates accounts and moves funds between them.
// It is safe for concurrent use; transfers over disjoint account pairs run in parallel.
type Coordinator struct {
	store    account.Store
	notifier notify.Notifier
	metrics  metrics.Collector
	logger   *logging.Logger
	config   Config
}

// Config configures a Coordinator. Zero fields get defaults.
type Config struct {
	// LockTimeout bounds the wait for both account locks (0 = wait for the caller's context)
	LockTimeout time.Duration

	// Notifier receives sender and receiver notifications (default: notify.Discard)
	Notifier notify.Notifier

	// Metrics defaults to metrics.NoOpCollector
	Metrics metrics.Collector

	// Logger defaults to the global logger
	Logger *logging.Logger

	// Clock stamps outcomes (default: time.Now in UTC)
	Clock func() time.Time

	// NewTransactionID generates transaction ids (default: random UUID)
	NewTransactionID func() string
}

// New creates a coordinator over store that notifies through notifier.
func New(store account.Store, notifier notify.Notifier) *Coordinator {
	return NewWithConfig(store, Config{Notifier: notifier})
}

// NewWithConfig creates a coordinator with full configuration.
func NewWithConfig(store account.Store, config Config) *Coordinator {
	if config.Notifier == nil {
		config.Notifier = notify.Discard
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.Logger == nil {
		config.Logger = logging.L()
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}
	if config.NewTransactionID == nil {
		config.NewTransactionID = uuid.NewString
	}

	return &Coordinator{
		store:    store,
		notifier: config.Notifier,
		metrics:  config.Metrics,
		logger:   config.Logger.Named("transfer"),
		config:   config,
	}
}

// CreateAccount registers a new account. Negative opening balances are rejected.
// A taken id yields an error matching account.ErrDuplicateAccountID.
func (c *Coordinator) CreateAccount(ctx context.Context, acct account.Account) error {
	if acct.Balance.IsNegative() {
		c.metrics.RecordAccountCreate(false)
		return fmt.Errorf("%w: opening balance must not be negative", account.ErrInvalidAmount)
	}

	if err := c.store.Create(ctx, acct); err != nil {
		c.metrics.RecordAccountCreate(false)
		c.logger.Info("account rejected",
			logging.AccountID(acct.ID),
			zap.String("reason", account.ClassifyError(err)),
		)
		return err
	}

	c.metrics.RecordAccountCreate(true)
	c.logger.Info("account created",
		logging.AccountID(acct.ID),
		logging.Amount("balance", acct.Balance),
	)
	return nil
}

// GetAccount returns a snapshot of an account, or account.ErrAccountNotFound.
func (c *Coordinator) GetAccount(ctx context.Context, id string) (account.Account, error) {
	return c.store.Get(ctx, id)
}

// Transfer moves req.Amount from req.FromAccountID to req.ToAccountID.
//
// Business declines (missing account, insufficient funds, lock timeout) are
// reported as a FAILURE outcome with a nil error. A non-nil error means the
// request itself was invalid and nothing was attempted.
//
// The sender and receiver are notified once each after the account locks
// are released, whatever the outcome.
func (c *Coordinator) Transfer(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	out := Outcome{
		TransactionID: c.config.NewTransactionID(),
		Timestamp:     c.config.Clock(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
	}

	cause := c.apply(ctx, req, out.Timestamp)
	if cause == nil {
		out.Status = StatusSuccess
		out.Message = MessageSuccess
	} else {
		out.Status = StatusFailure
		out.Message = MessageDeclined
		out.Reason = reasonFor(cause)
		out.Cause = cause
	}

	c.notifyParties(ctx, out)

	duration := time.Since(start)
	c.metrics.RecordTransfer(string(out.Status), ClassifyError(cause), duration)

	fields := []zap.Field{
		logging.TransactionID(out.TransactionID),
		zap.String("from", out.FromAccountID),
		zap.String("to", out.ToAccountID),
		logging.Amount("amount", out.Amount),
		zap.String("currency", out.Currency),
		zap.String("status", string(out.Status)),
		zap.Duration("duration", duration),
	}
	if cause != nil {
		c.logger.Info("transfer declined", append(fields, zap.Error(cause))...)
	} else {
		c.logger.Info("transfer completed", fields...)
	}

	return out, nil
}

// apply runs the locked part of a transfer. It returns the decline cause, or nil
// once both balances are updated.
func (c *Coordinator) apply(ctx context.Context, req Request, at time.Time) error {
	sender, err := c.store.Resolve(ctx, req.FromAccountID)
	if err != nil {
		return fmt.Errorf("sender %s: %w", req.FromAccountID, err)
	}
	receiver, err := c.store.Resolve(ctx, req.ToAccountID)
	if err != nil {
		return fmt.Errorf("receiver %s: %w", req.ToAccountID, err)
	}

	lockCtx := ctx
	if c.config.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, c.config.LockTimeout)
		defer cancel()
	}

	waitStart := time.Now()
	unlock, err := lockPair(lockCtx, sender, receiver)
	c.metrics.RecordLockWait(time.Since(waitStart))
	if err != nil {
		return err
	}
	defer unlock()

	if err := sender.Debit(req.Amount, at); err != nil {
		return err
	}
	if err := receiver.Credit(req.Amount, at); err != nil {
		// Credit only fails on a negative amount, which Validate rules out;
		// restore the sender anyway so the pair stays consistent.
		_ = sender.Credit(req.Amount, at)
		return err
	}
	return nil
}

// notifyParties sends the sender and receiver notifications. The caller's
// cancellation does not apply; delivery outlives the request.
func (c *Coordinator) notifyParties(ctx context.Context, out Outcome) {
	ctx = context.WithoutCancel(ctx)
	completed := out.Succeeded()

	parties := []struct {
		role         notify.Role
		accountID    string
		counterparty string
	}{
		{notify.RoleSender, out.FromAccountID, out.ToAccountID},
		{notify.RoleReceiver, out.ToAccountID, out.FromAccountID},
	}

	for _, p := range parties {
		c.notifier.Notify(ctx, notify.Notification{
			AccountID:     p.accountID,
			Role:          p.role,
			TransactionID: out.TransactionID,
			Status:        string(out.Status),
			Counterparty:  p.counterparty,
			Currency:      out.Currency,
			Amount:        out.Amount,
			Message:       notify.Message(p.role, completed, out.Currency, out.Amount, p.counterparty),
			Timestamp:     out.Timestamp,
		})
	}
}
