// Package natsclient manages the service's NATS connection, the
// JetStream handle and the key-value bucket persisting identity
// mappings.
package natsclient

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/metric"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/retry"
)

// Client wraps a NATS connection with reconnect handling and optional
// connection metrics.
type Client struct {
	urls          []string
	maxReconnects int
	reconnectWait time.Duration
	username      string
	password      string
	token         string
	clientName    string

	logger  *slog.Logger
	metrics *metric.Metrics

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables connection gauges and reconnect counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithCredentials sets username/password authentication.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets token authentication.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithReconnect tunes the reconnect policy.
func WithReconnect(maxReconnects int, wait time.Duration) Option {
	return func(c *Client) {
		c.maxReconnects = maxReconnects
		if wait > 0 {
			c.reconnectWait = wait
		}
	}
}

// WithName sets the client name reported to the server.
func WithName(name string) Option {
	return func(c *Client) {
		c.clientName = name
	}
}

// New creates a client for the given server URLs. Connect must be
// called before use.
func New(urls []string, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "natsclient.Client", "New", "server urls")
	}

	c := &Client{
		urls:          urls,
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		clientName:    "communicate-iris",
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "natsclient")
	return c, nil
}

// Connect establishes the connection and the JetStream handle.
func (c *Client) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("nats disconnected", "error", err)
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(0)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(1)
				c.metrics.NATSReconnects.Inc()
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Info("nats connection closed")
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(0)
			}
		}),
	}
	if c.username != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	conn, err := retry.DoWithResult(ctx, retry.Startup(), func() (*nats.Conn, error) {
		return nats.Connect(strings.Join(c.urls, ","), opts...)
	})
	if err != nil {
		return errors.WrapTransient(err, "natsclient.Client", "Connect", "server connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "natsclient.Client", "Connect", "jetstream init")
	}

	c.mu.Lock()
	c.conn = conn
	c.js = js
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.NATSConnected.Set(1)
	}
	c.logger.Info("nats connected", "url", conn.ConnectedUrl())
	return nil
}

// Publish sends a message on the given subject.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errors.ErrNotStarted
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "natsclient.Client", "Publish", "publish to "+subject)
	}
	return nil
}

// Subscribe registers a handler for a subject.
func (c *Client) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, errors.ErrNotStarted
	}
	sub, err := conn.Subscribe(subject, handler)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient.Client", "Subscribe", "subscribe to "+subject)
	}
	return sub, nil
}

// QueueSubscribe registers a queue-group handler for a subject so
// multiple instances share the stream.
func (c *Client) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, errors.ErrNotStarted
	}
	sub, err := conn.QueueSubscribe(subject, queue, handler)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient.Client", "QueueSubscribe", "subscribe to "+subject)
	}
	return sub, nil
}

// Request performs a request-reply exchange on the given subject.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, errors.ErrNotStarted
	}
	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient.Client", "Request", "request to "+subject)
	}
	return msg.Data, nil
}

// JetStream returns the JetStream handle.
func (c *Client) JetStream() jetstream.JetStream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.js
}

// IsConnected reports whether the underlying connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return errors.Wrap(err, "natsclient.Client", "Close", "drain")
	}
	return nil
}
