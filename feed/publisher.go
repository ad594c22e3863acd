// File: feed/publisher.go
// Package feed
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Publisher is the sending side of the position stream. It is fire and
// forget: every subscriber has its own backlog with a high-water mark, and
// a slow subscriber loses its oldest samples instead of stalling the rest.

package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/transport"
)

// PublisherConfig tunes a Publisher.
type PublisherConfig struct {
	// HighWater is the per-subscriber backlog limit.
	HighWater int
	Logger    *slog.Logger
}

type subscriber struct {
	conn *protocol.Conn

	mu      sync.Mutex
	backlog *queue.Queue
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Publisher broadcasts samples to every connected subscriber.
type Publisher struct {
	ln        *transport.Listener
	log       *slog.Logger
	highWater int

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher binds addr, e.g. "tcp://*:8556".
func NewPublisher(addr string, cfg PublisherConfig) (*Publisher, error) {
	ln, err := transport.Listen(addr)
	if err != nil {
		return nil, err
	}
	if cfg.HighWater <= 0 {
		cfg.HighWater = 1000
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		ln:        ln,
		log:       log.With("component", "publisher"),
		highWater: cfg.HighWater,
		subs:      make(map[*subscriber]struct{}),
	}, nil
}

// Addr returns the bound address.
func (p *Publisher) Addr() string {
	return p.ln.Addr().String()
}

// Serve accepts subscribers until ctx is done or Close is called.
func (p *Publisher) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()
	for {
		c, err := p.ln.Accept()
		if err != nil {
			if errors.Is(err, transport.ErrListenerClosed) {
				return nil
			}
			p.log.Warn("accept failed", "error", err)
			continue
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = c.Close()
			return nil
		}
		p.wg.Add(1)
		p.mu.Unlock()
		go func() {
			defer p.wg.Done()
			ws, err := p.ln.Upgrade(c)
			if err != nil {
				p.log.Debug("upgrade failed", "error", err)
				return
			}
			p.attach(ws)
		}()
	}
}

func (p *Publisher) attach(ws *protocol.Conn) {
	s := &subscriber{
		conn:    ws,
		backlog: queue.New(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = ws.Close()
		return
	}
	p.subs[s] = struct{}{}
	p.wg.Add(1)
	p.mu.Unlock()
	p.log.Info("subscriber attached", "remote", ws.RemoteAddr().String())

	go p.writeLoop(s)

	// Inbound traffic is only pings and the closing handshake.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	p.detach(s)
}

func (p *Publisher) detach(s *subscriber) {
	p.mu.Lock()
	_, ok := p.subs[s]
	delete(p.subs, s)
	p.mu.Unlock()
	s.stop()
	if ok {
		p.log.Info("subscriber detached", "remote", s.conn.RemoteAddr().String())
	}
}

func (p *Publisher) writeLoop(s *subscriber) {
	defer p.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if s.backlog.Length() == 0 {
				s.mu.Unlock()
				break
			}
			msg := s.backlog.Remove().([]byte)
			s.mu.Unlock()
			if err := s.conn.WriteMessage(protocol.OpcodeBinary, msg); err != nil {
				p.detach(s)
				return
			}
		}
	}
}

// Publish queues payload for every subscriber and never blocks on the network.
func (p *Publisher) Publish(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published.Add(1)
	for s := range p.subs {
		s.mu.Lock()
		if s.backlog.Length() >= p.highWater {
			s.backlog.Remove()
			p.dropped.Add(1)
		}
		s.backlog.Add(payload)
		s.mu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of attached subscribers.
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Counts returns published and dropped sample totals.
func (p *Publisher) Counts() (published, dropped uint64) {
	return p.published.Load(), p.dropped.Load()
}

// Close stops accepting, disconnects every subscriber and waits for their
// goroutines.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	subs := make([]*subscriber, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	err := p.ln.Close()
	for _, s := range subs {
		s.stop()
	}
	p.wg.Wait()
	return err
}
