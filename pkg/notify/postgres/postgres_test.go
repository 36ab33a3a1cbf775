package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"funds-transfer/pkg/notify"

	"github.com/shopspring/decimal"
)

func setupTestSink(t *testing.T) *AuditSink {
	cfg := DefaultConfig()
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	cfg.Table = fmt.Sprintf("test_notifications_%d", time.Now().UnixNano())

	s, err := NewAuditSink(cfg)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() {
		s.db.Exec("DROP TABLE IF EXISTS " + cfg.Table)
		s.Close()
	})
	return s
}

func TestConfig_ConnString(t *testing.T) {
	cfg := DefaultConfig()
	want := "host=localhost port=5432 user=postgres password=postgres dbname=transfers sslmode=disable"
	if got := cfg.connString(); got != want {
		t.Errorf("connString() = %q, want %q", got, want)
	}

	cfg.DSN = "postgres://u:p@db/x"
	if got := cfg.connString(); got != cfg.DSN {
		t.Errorf("expected DSN to win, got %q", got)
	}
}

func TestAuditSink_DeliverAndHistory(t *testing.T) {
	s := setupTestSink(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, role := range []notify.Role{notify.RoleSender, notify.RoleReceiver} {
		n := notify.Notification{
			AccountID:     "Id-1",
			Role:          role,
			TransactionID: "tx-1",
			Status:        "SUCCESS",
			Counterparty:  "Id-2",
			Currency:      "INR",
			Amount:        decimal.RequireFromString("100.25"),
			Message:       "hello",
			Timestamp:     base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Deliver(ctx, n); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}
		// Redelivery is a no-op.
		if err := s.Deliver(ctx, n); err != nil {
			t.Fatalf("redelivery failed: %v", err)
		}
	}

	history, err := s.History(ctx, "Id-1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	if history[0].Role != notify.RoleReceiver {
		t.Errorf("expected newest first, got %s", history[0].Role)
	}
	if !history[0].Amount.Equal(decimal.RequireFromString("100.25")) {
		t.Errorf("amount did not round trip: %s", history[0].Amount)
	}
}
