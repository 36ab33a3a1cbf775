package notify

import (
	"context"

	"funds-transfer/pkg/logging"

	"go.uber.org/zap"
)

// LogSink writes each notification as a structured log line.
// It stands in for an email or SMS gateway in local setups.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink returns a sink logging through logger, or the global logger if nil.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.L()
	}
	return &LogSink{logger: logger.Named("notification")}
}

// Deliver logs n at info level.
func (s *LogSink) Deliver(ctx context.Context, n Notification) error {
	s.logger.Info(n.Message,
		logging.AccountID(n.AccountID),
		logging.TransactionID(n.TransactionID),
		zap.String("role", string(n.Role)),
		zap.String("status", n.Status),
		zap.String("currency", n.Currency),
		logging.Amount("amount", n.Amount),
	)
	return nil
}

// Name returns "log".
func (s *LogSink) Name() string { return "log" }

// Close flushes the logger.
func (s *LogSink) Close() error {
	// Sync on stdout/stderr fails on some platforms; that is not a delivery error.
	_ = s.logger.Sync()
	return nil
}
