// Package natskv provides a slim NATS JetStream client focused on KV bucket
// access. It covers exactly what the cache store needs: connect, ensure a
// bucket exists, and perform key/value operations with classified errors.
package natskv

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/pkg/retry"
)

// Client manages a NATS connection and JetStream context.
type Client struct {
	url    string
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger

	connectTimeout time.Duration
	maxReconnects  int
	reconnectWait  time.Duration
	username       string
	password       string
	token          string
}

// ClientOption configures a Client before connection.
type ClientOption func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCredentials sets username/password authentication.
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets token authentication.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithConnectTimeout sets the initial connection timeout.
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.connectTimeout = timeout
	}
}

// NewClient creates a client for the given NATS URL. Connect must be called
// before any KV operation.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:            url,
		logger:         slog.Default().With("component", "natskv"),
		connectTimeout: 5 * time.Second,
		maxReconnects:  -1, // reconnect forever
		reconnectWait:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the NATS connection and JetStream context.
func (c *Client) Connect() error {
	natsOpts := []nats.Option{
		nats.Name("walletsync"),
		nats.Timeout(c.connectTimeout),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.logger.Info("nats reconnected", "url", conn.ConnectedUrl())
		}),
	}
	if c.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		natsOpts = append(natsOpts, nats.Token(c.token))
	}

	conn, err := nats.Connect(c.url, natsOpts...)
	if err != nil {
		return errors.WrapTransient(err, "natskv", "Connect", "nats connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return errors.WrapTransient(err, "natskv", "Connect", "jetstream context")
	}

	c.conn = conn
	c.js = js
	c.logger.Info("connected to nats", "url", c.url)
	return nil
}

// IsHealthy reports whether the connection is established.
func (c *Client) IsHealthy() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// EnsureBucket returns the named KV bucket, creating it if missing. The
// bucket TTL acts as a physical backstop behind the store's logical expiry.
// Creation is retried briefly since JetStream may still be electing a leader
// right after startup.
func (c *Client) EnsureBucket(ctx context.Context, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	if c.js == nil {
		return nil, errors.WrapTransient(errors.ErrCacheUnavailable, "natskv", "EnsureBucket", "not connected")
	}

	return retry.DoWithResult(ctx, retry.Quick(), func() (jetstream.KeyValue, error) {
		kv, err := c.js.KeyValue(ctx, name)
		if err == nil {
			return kv, nil
		}

		kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket: name,
			TTL:    ttl,
		})
		if err != nil {
			return nil, err
		}
		return kv, nil
	})
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return errors.WrapTransient(err, "natskv", "Close", "drain")
	}
	return nil
}
