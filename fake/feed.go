// File: fake/feed.go
// Package fake provides predictable doubles of the feed, scene builder and
// window for tests and headless development.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"context"
	"sync"

	"github.com/momentics/hioload-maze/api"
)

// Feed is an in-memory position subscription.
type Feed struct {
	mu       sync.Mutex
	endpoint string
	refuse   map[string]bool
	connects int
	samples  chan []byte
}

// NewFeed creates a feed whose sample channel holds buffer entries.
func NewFeed(buffer int) *Feed {
	return &Feed{refuse: map[string]bool{}, samples: make(chan []byte, buffer)}
}

// Connect records endpoint unless it was refused.
func (f *Feed) Connect(_ context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[endpoint] {
		return api.ErrConnectRefused
	}
	if f.endpoint == endpoint {
		return api.ErrAlreadyConnected
	}
	f.endpoint = endpoint
	f.connects++
	return nil
}

// Refuse makes later connects to endpoint fail.
func (f *Feed) Refuse(endpoint string) {
	f.mu.Lock()
	f.refuse[endpoint] = true
	f.mu.Unlock()
}

// Disconnect forgets the endpoint.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	f.endpoint = ""
	f.mu.Unlock()
}

// Samples returns the sample channel.
func (f *Feed) Samples() <-chan []byte { return f.samples }

// Push delivers one raw sample.
func (f *Feed) Push(raw []byte) { f.samples <- raw }

// Endpoint returns the connected endpoint or "".
func (f *Feed) Endpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint
}

// Connects counts successful connects.
func (f *Feed) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}
