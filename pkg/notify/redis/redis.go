package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"funds-transfer/pkg/notify"

	"github.com/redis/rueidis"
)

// PublishSink publishes notifications on a Redis channel and keeps a short
// per-account inbox list, so clients can either subscribe or poll.
type PublishSink struct {
	client rueidis.Client
	config Config
}

// Config configures the Redis sink.
type Config struct {
	// Addr is the Redis server address for single node mode.
	Addr string
	// ClusterAddrs enables cluster mode when set.
	ClusterAddrs []string
	Username     string
	Password     string
	DB           int

	// Channel receives every notification (default: "transfers.notifications")
	Channel string
	// InboxPrefix prefixes per-account inbox keys (default: "inbox:")
	InboxPrefix string
	// InboxLength caps each inbox; 0 disables inboxes (default: 50)
	InboxLength int64

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a single-node configuration for localhost.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Channel:      "transfers.notifications",
		InboxPrefix:  "inbox:",
		InboxLength:  50,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewPublishSink connects to Redis and verifies the connection with PING.
func NewPublishSink(config Config) (*PublishSink, error) {
	defaults := DefaultConfig()
	if config.Channel == "" {
		config.Channel = defaults.Channel
	}
	if config.InboxPrefix == "" {
		config.InboxPrefix = defaults.InboxPrefix
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaults.DialTimeout
	}

	var initAddress []string
	switch {
	case len(config.ClusterAddrs) > 0:
		initAddress = config.ClusterAddrs
	case config.Addr != "":
		initAddress = []string{config.Addr}
	default:
		return nil, fmt.Errorf("redis: no addresses configured (set Addr or ClusterAddrs)")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		DisableCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &PublishSink{client: client, config: config}, nil
}

// Deliver publishes n and appends it to the account's inbox in one round trip.
func (s *PublishSink) Deliver(ctx context.Context, n notify.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis publish: failed to marshal: %w", err)
	}
	payload := string(data)

	cmds := rueidis.Commands{
		s.client.B().Publish().Channel(s.config.Channel).Message(payload).Build(),
	}
	if s.config.InboxLength > 0 {
		key := s.inboxKey(n.AccountID)
		cmds = append(cmds,
			s.client.B().Lpush().Key(key).Element(payload).Build(),
			s.client.B().Ltrim().Key(key).Start(0).Stop(s.config.InboxLength-1).Build(),
		)
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit of the newest notifications in the account's inbox.
func (s *PublishSink) Recent(ctx context.Context, accountID string, limit int64) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = s.config.InboxLength
	}

	cmd := s.client.B().Lrange().Key(s.inboxKey(accountID)).Start(0).Stop(limit - 1).Build()
	items, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("redis inbox: %w", err)
	}

	out := make([]notify.Notification, 0, len(items))
	for _, item := range items {
		var n notify.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("redis inbox: failed to unmarshal: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ClearInbox deletes the account's inbox.
func (s *PublishSink) ClearInbox(ctx context.Context, accountID string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.inboxKey(accountID)).Build()).Error()
}

func (s *PublishSink) inboxKey(accountID string) string {
	return s.config.InboxPrefix + accountID
}

// Name returns "redis".
func (s *PublishSink) Name() string { return "redis" }

// Close closes the client.
func (s *PublishSink) Close() error {
	s.client.Close()
	return nil
}
