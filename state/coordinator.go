// File: state/coordinator.go
// Package state owns the state shared by the control worker and the render
// loop: the SyncedState machine, the one-slot configuration queue and the
// current track position.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reads are lock-free atomics so the render loop can poll every frame.
// Transitions are serialized by a mutex; every transition closes the current
// broadcast channel and installs a fresh one, which is how a waiting
// LoadModel learns that the render loop has acted.

package state

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-maze/api"
)

// TransitionFunc observes a state change. It runs under the transition lock,
// in transition order, and must not call back into the Coordinator except
// for State and Position.
type TransitionFunc func(from, to api.SyncedState)

// Coordinator is created after the default scene exists, so it starts Ready
// at position 0.
type Coordinator struct {
	state    atomic.Int32
	position atomic.Uint64

	mu        sync.Mutex
	changed   chan struct{}
	pending   chan api.MazeConfig
	observers []TransitionFunc

	done chan struct{}
}

// New returns a Coordinator in StateReady.
func New() *Coordinator {
	c := &Coordinator{
		changed: make(chan struct{}),
		pending: make(chan api.MazeConfig, 1),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(api.StateReady))
	return c
}

// State returns the current state.
func (c *Coordinator) State() api.SyncedState {
	return api.SyncedState(c.state.Load())
}

// Position returns the last published track position.
func (c *Coordinator) Position() float64 {
	return math.Float64frombits(c.position.Load())
}

// SetPosition publishes a new track position. Single writer: the feed.
func (c *Coordinator) SetPosition(p float64) {
	c.position.Store(math.Float64bits(p))
}

// OnTransition registers an observer for every state change.
func (c *Coordinator) OnTransition(fn TransitionFunc) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Done is closed once the state becomes Exiting.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// transitionLocked must be called with mu held.
func (c *Coordinator) transitionLocked(to api.SyncedState) {
	from := api.SyncedState(c.state.Load())
	c.state.Store(int32(to))
	close(c.changed)
	c.changed = make(chan struct{})
	if to == api.StateExiting {
		close(c.done)
	}
	for _, fn := range c.observers {
		fn(from, to)
	}
}

// RequestReconfiguration queues cfg for the render loop, moves the state to
// ReconfigurationRequested and blocks until the render loop moves it on.
// The returned state is Ready, ReconfigurationFailed or Exiting. The wait
// has no timeout; only ctx or Exiting ends it early.
func (c *Coordinator) RequestReconfiguration(ctx context.Context, cfg api.MazeConfig) (api.SyncedState, error) {
	if cfg == nil {
		cfg = api.MazeConfig{}
	}

	c.mu.Lock()
	cur := api.SyncedState(c.state.Load())
	switch cur {
	case api.StateExiting:
		c.mu.Unlock()
		return cur, api.ErrExiting
	case api.StateReconfigurationRequested:
		c.mu.Unlock()
		return cur, fmt.Errorf("%w: reconfiguration already in progress", api.ErrInvalidTransition)
	}
	select {
	case <-c.pending:
	default:
	}
	c.pending <- cfg
	c.transitionLocked(api.StateReconfigurationRequested)
	wait := c.changed
	c.mu.Unlock()

	for {
		select {
		case <-wait:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
		c.mu.Lock()
		s := api.SyncedState(c.state.Load())
		wait = c.changed
		c.mu.Unlock()
		if s != api.StateReconfigurationRequested {
			return s, nil
		}
	}
}

// PendingConfig hands the queued configuration to the render loop without
// blocking. It reports false when nothing is queued.
func (c *Coordinator) PendingConfig() (api.MazeConfig, bool) {
	select {
	case cfg := <-c.pending:
		return cfg, true
	default:
		return nil, false
	}
}

// CompleteReconfiguration records the outcome of applying the pending
// configuration: nil moves to Ready, an error to ReconfigurationFailed.
func (c *Coordinator) CompleteReconfiguration(applyErr error) error {
	to := api.StateReady
	if applyErr != nil {
		to = api.StateReconfigurationFailed
	}

	c.mu.Lock()
	cur := api.SyncedState(c.state.Load())
	if cur == api.StateExiting {
		c.mu.Unlock()
		return api.ErrExiting
	}
	if cur != api.StateReconfigurationRequested {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", api.ErrInvalidTransition, cur, to)
	}
	c.transitionLocked(to)
	c.mu.Unlock()
	return nil
}

// Exit moves to Exiting from any state. It reports whether this call made
// the transition.
func (c *Coordinator) Exit() bool {
	c.mu.Lock()
	if api.SyncedState(c.state.Load()) == api.StateExiting {
		c.mu.Unlock()
		return false
	}
	c.transitionLocked(api.StateExiting)
	c.mu.Unlock()
	return true
}
