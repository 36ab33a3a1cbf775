package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"funds-transfer/pkg/notify"

	_ "github.com/lib/pq"
)

// AuditSink appends every notification to a Postgres table, giving an
// after-the-fact record of what each account holder was told.
type AuditSink struct {
	db    *sql.DB
	table string
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	// DSN overrides the individual connection fields when set
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Table receives the rows (default: "transfer_notifications")
	Table string
}

// DefaultConfig returns a local development configuration.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "transfers",
		SSLMode:  "disable",
		Table:    "transfer_notifications",
	}
}

func (c Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewAuditSink opens a connection pool, pings it and creates the table if needed.
func NewAuditSink(cfg Config) (*AuditSink, error) {
	if cfg.Table == "" {
		cfg.Table = "transfer_notifications"
	}

	db, err := sql.Open("postgres", cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &AuditSink{db: db, table: cfg.Table}
	if err := s.initTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *AuditSink) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			transaction_id VARCHAR(64) NOT NULL,
			account_id VARCHAR(250) NOT NULL,
			role VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			counterparty VARCHAR(250) NOT NULL,
			currency VARCHAR(16) NOT NULL,
			amount NUMERIC(38, 18) NOT NULL,
			message TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (transaction_id, role)
		)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return nil
}

// Deliver inserts n. A redelivery of the same transaction and role is ignored.
func (s *AuditSink) Deliver(ctx context.Context, n notify.Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (transaction_id, account_id, role, status, counterparty, currency, amount, message, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_id, role) DO NOTHING`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		n.TransactionID,
		n.AccountID,
		string(n.Role),
		n.Status,
		n.Counterparty,
		n.Currency,
		n.Amount.String(),
		n.Message,
		n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres audit insert: %w", err)
	}
	return nil
}

// History returns an account's notifications, newest first.
func (s *AuditSink) History(ctx context.Context, accountID string, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT transaction_id, account_id, role, status, counterparty, currency, amount, message, occurred_at
		FROM %s
		WHERE account_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres audit query: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var role string
		if err := rows.Scan(
			&n.TransactionID, &n.AccountID, &role, &n.Status, &n.Counterparty,
			&n.Currency, &n.Amount, &n.Message, &n.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres audit scan: %w", err)
		}
		n.Role = notify.Role(role)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Name returns "postgres".
func (s *AuditSink) Name() string { return "postgres" }

// Close closes the connection pool.
func (s *AuditSink) Close() error {
	return s.db.Close()
}
