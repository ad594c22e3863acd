// File: feed/client.go
// Package feed
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client subscribes to one publisher at a time. Samples land in a bounded
// channel that outlives reconnects, so the control worker selects on a
// single channel no matter which endpoint is live. When the channel is full
// the oldest sample is dropped.

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/transport"
)

// Config tunes a Client.
type Config struct {
	// DialTimeout bounds Connect.
	DialTimeout time.Duration
	// Buffer is the capacity of the sample channel.
	Buffer int
	// RedialMin and RedialMax bound the backoff after a live feed drops.
	RedialMin time.Duration
	RedialMax time.Duration
	// ReadLimit caps one inbound message.
	ReadLimit int64
	Logger    *slog.Logger
	Dialer    *websocket.Dialer
}

// DefaultConfig returns the settings used by the render process.
func DefaultConfig() Config {
	return Config{
		DialTimeout: time.Second,
		Buffer:      256,
		RedialMin:   100 * time.Millisecond,
		RedialMax:   5 * time.Second,
		ReadLimit:   4096,
	}
}

// Stats are cumulative client counters.
type Stats struct {
	Received   uint64
	Dropped    uint64
	Reconnects uint64
}

// Client mirrors a remote position stream into Samples.
type Client struct {
	cfg     Config
	log     *slog.Logger
	dialer  *websocket.Dialer
	samples chan []byte

	mu       sync.Mutex
	endpoint string
	conn     *websocket.Conn
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup

	received   atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64
}

// NewClient returns a disconnected client.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.RedialMin <= 0 {
		cfg.RedialMin = def.RedialMin
	}
	if cfg.RedialMax < cfg.RedialMin {
		cfg.RedialMax = def.RedialMax
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	}
	return &Client{
		cfg:     cfg,
		log:     log.With("component", "feed"),
		dialer:  dialer,
		samples: make(chan []byte, cfg.Buffer),
	}
}

// Samples delivers raw samples in arrival order.
func (c *Client) Samples() <-chan []byte {
	return c.samples
}

// Endpoint returns the live endpoint URL, or "" when disconnected.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		Received:   c.received.Load(),
		Dropped:    c.dropped.Load(),
		Reconnects: c.reconnects.Load(),
	}
}

// Connect subscribes to endpoint, replacing the current subscription only
// once the new one is established. Errors wrap api.ErrInvalidAddress,
// api.ErrConnectRefused or api.ErrAlreadyConnected.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	url, err := transport.NormalizeEndpoint(endpoint)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrTransportClosed
	}
	if c.endpoint == url {
		c.mu.Unlock()
		return api.ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx, url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return api.ErrTransportClosed
	}
	c.stopLocked()
	rctx, cancel := context.WithCancel(context.Background())
	c.endpoint, c.conn, c.cancel = url, conn, cancel
	c.wg.Add(1)
	go c.readLoop(rctx, url, conn)
	c.mu.Unlock()

	c.log.Info("subscribed", "endpoint", url)
	return nil
}

// Disconnect drops the current subscription. Calling it while disconnected
// is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	ep := c.endpoint
	c.stopLocked()
	c.mu.Unlock()
	if ep != "" {
		c.log.Info("unsubscribed", "endpoint", ep)
	}
}

// Close disconnects and waits for the reader to finish.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func (c *Client) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.endpoint = ""
}

func (c *Client) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, _, err := c.dialer.DialContext(dctx, url, nil)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeTransport, "dial "+url, fmt.Errorf("%w: %w", api.ErrConnectRefused, err))
	}
	conn.SetReadLimit(c.cfg.ReadLimit)
	return conn, nil
}

// readLoop owns conn until ctx is cancelled. A dropped stream is redialed
// with backoff for as long as url remains the current subscription.
func (c *Client) readLoop(ctx context.Context, url string, conn *websocket.Conn) {
	defer c.wg.Done()
	backoff := c.cfg.RedialMin
	for {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn("feed dropped", "endpoint", url, "error", err)
				}
				break
			}
			backoff = c.cfg.RedialMin
			c.received.Add(1)
			c.push(msg)
		}
		_ = conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			next, err := c.dial(ctx, url)
			if err == nil {
				c.mu.Lock()
				if ctx.Err() != nil {
					c.mu.Unlock()
					_ = next.Close()
					return
				}
				c.conn = next
				c.mu.Unlock()
				conn = next
				c.reconnects.Add(1)
				c.log.Info("resubscribed", "endpoint", url)
				break
			}
			backoff *= 2
			if backoff > c.cfg.RedialMax {
				backoff = c.cfg.RedialMax
			}
		}
	}
}

func (c *Client) push(msg []byte) {
	for {
		select {
		case c.samples <- msg:
			return
		default:
		}
		select {
		case <-c.samples:
			c.dropped.Add(1)
		default:
		}
	}
}
