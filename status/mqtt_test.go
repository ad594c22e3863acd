// File: status/mqtt_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/config"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
func (t doneToken) Error() error { return t.err }

type recorder struct {
	mu      sync.Mutex
	topics  []string
	events  []Event
	failing bool
}

func (r *recorder) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return doneToken{err: errors.New("broker gone")}
	}
	var ev Event
	_ = json.Unmarshal(payload.([]byte), &ev)
	r.topics = append(r.topics, topic)
	r.events = append(r.events, ev)
	return doneToken{}
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestEmitterPublishesInOrder(t *testing.T) {
	rec := &recorder{}
	e := NewMQTTEmitter(config.StatusConfig{Topic: "maze/rig/status"}, "rig", rec, nil)

	e.Transition(api.StateReady, api.StateReconfigurationRequested)
	e.Transition(api.StateReconfigurationRequested, api.StateReady)
	e.Command(api.CmdLoadModel, api.ReplyModelLoaded, 1500*time.Microsecond)
	require.NoError(t, e.Close())

	evs := rec.snapshot()
	require.Len(t, evs, 3)
	assert.Equal(t, "transition", evs[0].Kind)
	assert.Equal(t, "Ready", evs[0].From)
	assert.Equal(t, "ReconfigurationRequested", evs[0].To)
	assert.Equal(t, "command", evs[2].Kind)
	assert.Equal(t, "LoadModel", evs[2].Command)
	assert.Equal(t, "ModelLoaded", evs[2].Reply)
	assert.Equal(t, 1.5, evs[2].ElapsedMs)
	assert.Equal(t, "rig", evs[2].Source)
	assert.Equal(t, []string{"maze/rig/status", "maze/rig/status", "maze/rig/status"}, rec.topics)

	published, dropped, failed := e.Stats()
	assert.Equal(t, uint64(3), published)
	assert.Zero(t, dropped)
	assert.Zero(t, failed)
}

func TestEmitterCountsFailures(t *testing.T) {
	rec := &recorder{failing: true}
	e := NewMQTTEmitter(config.StatusConfig{Topic: "t"}, "rig", rec, nil)
	e.Transition(api.StateReady, api.StateExiting)
	require.NoError(t, e.Close())
	_, _, failed := e.Stats()
	assert.Equal(t, uint64(1), failed)
}

func TestEmitterIgnoresEventsAfterClose(t *testing.T) {
	rec := &recorder{}
	e := NewMQTTEmitter(config.StatusConfig{Topic: "t"}, "rig", rec, nil)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	e.Command(api.CmdExit, api.ReplyExiting, 0)
	assert.Empty(t, rec.snapshot())
}

func TestNoop(t *testing.T) {
	var e Emitter = Noop{}
	e.Transition(api.StateReady, api.StateExiting)
	e.Command(api.CmdExit, api.ReplyExiting, 0)
	assert.NoError(t, e.Close())
}
