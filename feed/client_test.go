// File: feed/client_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
)

func startPublisher(t *testing.T) *Publisher {
	t.Helper()
	pub, err := NewPublisher("127.0.0.1:0", PublisherConfig{HighWater: 8})
	require.NoError(t, err)
	go func() { _ = pub.Serve(context.Background()) }()
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

// deadAddress returns a loopback address nothing listens on.
func deadAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Samples():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
		return nil
	}
}

func TestClientReceivesPublishedSamples(t *testing.T) {
	pub := startPublisher(t)
	c := NewClient(DefaultConfig())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "tcp://"+pub.Addr()))
	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	pub.Publish(protocol.EncodePosition(protocol.PositionSample{Timestamp: 1, Position: 42.5}))
	s, err := protocol.DecodeSample(protocol.LayoutPosition, receive(t, c))
	require.NoError(t, err)
	assert.Equal(t, 42.5, s.Position)
	assert.Equal(t, uint64(1), c.Stats().Received)
}

func TestClientConnectErrors(t *testing.T) {
	pub := startPublisher(t)
	c := NewClient(Config{DialTimeout: 300 * time.Millisecond})
	defer c.Close()

	err := c.Connect(context.Background(), "tcp://*:8556")
	assert.ErrorIs(t, err, api.ErrInvalidAddress)

	live := "tcp://" + pub.Addr()
	require.NoError(t, c.Connect(context.Background(), live))
	assert.ErrorIs(t, c.Connect(context.Background(), live), api.ErrAlreadyConnected)

	// A failed reconnect keeps the previous feed.
	err = c.Connect(context.Background(), "tcp://"+deadAddress(t))
	assert.ErrorIs(t, err, api.ErrConnectRefused)
	assert.Equal(t, "ws://"+pub.Addr()+"/", c.Endpoint())

	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	pub.Publish(protocol.EncodePosition(protocol.PositionSample{Position: 3}))
	receive(t, c)
}

func TestClientDisconnectIsIdempotent(t *testing.T) {
	pub := startPublisher(t)
	c := NewClient(DefaultConfig())
	defer c.Close()

	c.Disconnect()
	require.NoError(t, c.Connect(context.Background(), "tcp://"+pub.Addr()))
	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	c.Disconnect()
	c.Disconnect()
	assert.Empty(t, c.Endpoint())
	require.Eventually(t, func() bool { return pub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestClientSwitchesPublisher(t *testing.T) {
	first := startPublisher(t)
	second := startPublisher(t)
	c := NewClient(DefaultConfig())
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "tcp://"+first.Addr()))
	require.NoError(t, c.Connect(context.Background(), "tcp://"+second.Addr()))
	require.Eventually(t, func() bool {
		return first.Subscribers() == 0 && second.Subscribers() == 1
	}, 2*time.Second, 5*time.Millisecond)

	second.Publish(protocol.EncodePosition(protocol.PositionSample{Position: 7}))
	s, err := protocol.DecodeSample(protocol.LayoutPosition, receive(t, c))
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Position)
}

func TestClientDropsOldestWhenFull(t *testing.T) {
	pub := startPublisher(t)
	c := NewClient(Config{Buffer: 2})
	defer c.Close()

	require.NoError(t, c.Connect(context.Background(), "tcp://"+pub.Addr()))
	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	for i := 1; i <= 5; i++ {
		pub.Publish(protocol.EncodePosition(protocol.PositionSample{Timestamp: uint32(i), Position: float64(i)}))
	}
	require.Eventually(t, func() bool { return c.Stats().Received == 5 }, 2*time.Second, 5*time.Millisecond)

	a, _ := protocol.DecodeSample(protocol.LayoutPosition, receive(t, c))
	b, _ := protocol.DecodeSample(protocol.LayoutPosition, receive(t, c))
	assert.Equal(t, []float64{4, 5}, []float64{a.Position, b.Position})
	assert.Equal(t, uint64(3), c.Stats().Dropped)
}

func TestPublisherClose(t *testing.T) {
	pub, err := NewPublisher("127.0.0.1:0", PublisherConfig{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Serve(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.NoError(t, pub.Close())
}
