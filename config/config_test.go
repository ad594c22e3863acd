// File: config/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp://*:8557", cfg.Server.Listen)
	assert.Equal(t, 10*time.Millisecond, cfg.Worker.PollInterval.D())
	assert.Equal(t, datasize.MB, cfg.Server.MaxMessageSize)
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "maze.yaml", `
server:
  listen: "tcp://127.0.0.1:9557"
  max_message_size: "2MB"
  write_timeout: "1s"
feed:
  address: "tcp://10.0.0.5:8556"
  layout: ticks
worker:
  poll_interval: "5ms"
log:
  level: debug
  format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:9557", cfg.Server.Listen)
	assert.Equal(t, 2*datasize.MB, cfg.Server.MaxMessageSize)
	assert.Equal(t, time.Second, cfg.Server.WriteTimeout.D())
	assert.Equal(t, "ticks", cfg.Feed.Layout)
	assert.Equal(t, 5*time.Millisecond, cfg.Worker.PollInterval.D())
	// untouched sections keep their defaults
	assert.Equal(t, 256, cfg.Feed.Buffer)
	assert.Equal(t, "1.1", cfg.Worker.Version)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "maze.toml", `
shutdown_timeout = "2s"

[render]
fps = 90

[status]
broker = "tcp://localhost:1883"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Render.FPS)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout.D())
	assert.Equal(t, "maze/hioload-maze.Communicator/status", cfg.Status.Topic)
	assert.Equal(t, "hioload-maze.Communicator", cfg.Status.ClientID)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"layout":   "feed:\n  layout: bytes\n",
		"address":  "feed:\n  address: \"udp://x:1\"\n",
		"listen":   "server:\n  listen: \"\"\n",
		"interval": "worker:\n  poll_interval: \"0s\"\n",
		"level":    "log:\n  level: loud\n",
		"format":   "log:\n  format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", body))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeFile(t, "c.ini", "x=1"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(LogConfig{Level: "nope"}, &buf)
	assert.Error(t, err)
}

func TestDisplayDefaultsAndViewport(t *testing.T) {
	d := DefaultDisplay()
	require.NoError(t, d.Validate())
	assert.Equal(t, Viewport{0, 0, 1920, 1080}, d.Viewport(1920, 1080))

	p := writeFile(t, "display_config.yaml", `
MonitorSize: [40, 20]
DisplayRegion: [10, 0, 20, 20]
MonitorDistance: 30
`)
	d, err := LoadDisplay(p)
	require.NoError(t, err)
	assert.Equal(t, 30.0, d.MonitorDistance)
	assert.Equal(t, 0.05, d.ClippingDistance)
	assert.Equal(t, Viewport{X: 400, Y: 0, Width: 800, Height: 1000}, d.Viewport(1600, 1000))
}

func TestDisplayRegionFollowsMonitorSize(t *testing.T) {
	d, err := LoadDisplay(writeFile(t, "d.yaml", "MonitorSize: [30, 15]\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 30, 15}, d.DisplayRegion)
}

func TestDisplayInvalidFallsBack(t *testing.T) {
	d, err := LoadDisplay(writeFile(t, "d.yaml", "MonitorSize: [30]\n"))
	assert.ErrorIs(t, err, ErrInvalidDisplay)
	assert.Equal(t, DefaultDisplay(), d)
}

func TestParseFleet(t *testing.T) {
	f, err := ParseFleet([]byte(`
[defaults]
request_retries = 2

[[target]]
name = "rig-a"
host = "10.129.151.177"

[[target]]
host = "10.129.151.185"
port = 9000
`))
	require.NoError(t, err)
	require.Len(t, f.Targets, 2)
	assert.Equal(t, 2, f.Defaults.RequestRetries)
	assert.Equal(t, "10.129.151.185", f.Targets[1].Name)
	assert.Equal(t, []string{
		"tcp://10.129.151.177:8557",
		"tcp://10.129.151.185:9000",
	}, f.Endpoints())

	_, err = ParseFleet([]byte("[defaults]\nport = 1\n"))
	assert.Error(t, err)
	_, err = ParseFleet([]byte("[[target]]\nname = \"x\"\n"))
	assert.Error(t, err)
}
