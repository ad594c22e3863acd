// File: supervisor/supervisor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package supervisor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/client"
	"github.com/momentics/hioload-maze/config"
	"github.com/momentics/hioload-maze/fake"
	"github.com/momentics/hioload-maze/feed"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/render"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Server.Listen = "tcp://127.0.0.1:0"
	cfg.ShutdownTimeout = config.Duration(2 * time.Second)
	return cfg
}

type process struct {
	rt       Runtime
	endpoint string
	code     chan int
	window   *fake.Window
	builder  *fake.Builder
}

func startProcess(t *testing.T, ctx context.Context, cfg config.Config) *process {
	t.Helper()
	p := &process{
		code:    make(chan int, 1),
		window:  &fake.Window{FrameDelay: time.Millisecond},
		builder: &fake.Builder{},
	}
	started := make(chan Runtime, 1)
	go func() {
		p.code <- Run(ctx, Options{
			Config:  cfg,
			Builder: p.builder,
			Window:  p.window,
			Started: func(rt Runtime) { started <- rt },
		})
	}()
	select {
	case p.rt = <-started:
	case code := <-p.code:
		t.Fatalf("process exited early with %d", code)
	case <-time.After(3 * time.Second):
		t.Fatal("process did not start")
	}
	p.endpoint = "tcp://" + p.rt.CommandAddr.String()
	return p
}

func (p *process) wait(t *testing.T) int {
	t.Helper()
	select {
	case code := <-p.code:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
		return -1
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	pub, err := feed.NewPublisher("tcp://127.0.0.1:0", feed.PublisherConfig{})
	require.NoError(t, err)
	go func() { _ = pub.Serve(ctx) }()
	defer pub.Close()

	p := startProcess(t, ctx, testConfig())
	cl := client.New(client.DefaultConfig())

	res, err := cl.Send(ctx, p.endpoint, api.ControlMessage{Command: api.CmdQueryVersion}, client.ExpectVersion())
	require.NoError(t, err)
	assert.Equal(t, api.VersionReply("1.1"), res.Reply)

	load := api.ControlMessage{Command: api.CmdLoadModel, MazeConfig: api.MazeConfig{"Name": "teleport"}}
	res, err = cl.Send(ctx, p.endpoint, load, client.ExpectedFor(load.Command))
	require.NoError(t, err)
	assert.Equal(t, api.ReplyModelLoaded, res.Reply)
	assert.Contains(t, p.window.Scenes(), "teleport")
	assert.Equal(t, api.StateReady, p.rt.Coordinator.State())

	broken := api.ControlMessage{Command: api.CmdLoadModel, MazeConfig: api.MazeConfig{"Broken": true}}
	res, err = cl.Send(ctx, p.endpoint, broken, client.Expect(api.ReplyModelFailure))
	require.NoError(t, err)
	assert.Equal(t, api.StateReconfigurationFailed, p.rt.Coordinator.State())

	repoint := api.ControlMessage{Command: api.CmdUpdateDataServer, DataServerAddress: "tcp://" + pub.Addr()}
	_, err = cl.Send(ctx, p.endpoint, repoint, client.ExpectedFor(repoint.Command))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		pub.Publish(protocol.EncodePosition(protocol.PositionSample{Timestamp: 7, Position: 17.5}))
		return p.window.LastPosition() == 17.5
	}, 3*time.Second, 10*time.Millisecond)

	res, err = cl.Send(ctx, p.endpoint, api.ControlMessage{Command: api.CmdExit}, client.ExpectedFor(api.CmdExit))
	require.NoError(t, err)
	assert.Equal(t, api.ReplyExiting, res.Reply)

	assert.Equal(t, ExitOK, p.wait(t))
	assert.Equal(t, api.StateExiting, p.rt.Coordinator.State())
	assert.True(t, p.window.Closed())

	stats := p.rt.Control.Stats()
	assert.Equal(t, int64(1), stats["worker.commands.Exit"])
	assert.Equal(t, int64(1), stats["render.rebuilds.ok"])
	assert.Equal(t, "Exiting", stats["debug.state"])
	assert.Contains(t, stats, "debug.feed.samples")
	assert.Equal(t, uint32(7), stats["debug.feed.last_timestamp"])
	assert.Contains(t, stats, "debug.server.frames")
}

func TestInterruptExitsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := startProcess(t, ctx, testConfig())
	cancel()
	assert.Equal(t, ExitOK, p.wait(t))
	assert.Equal(t, api.StateExiting, p.rt.Coordinator.State())
}

func TestUserQuitStopsWorker(t *testing.T) {
	p := startProcess(t, context.Background(), testConfig())
	p.window.Quit()
	assert.Equal(t, ExitOK, p.wait(t))

	// the endpoint is gone once Run returns
	c, err := net.DialTimeout("tcp", p.rt.CommandAddr.String(), 200*time.Millisecond)
	if err == nil {
		c.Close()
	}
	assert.Error(t, err)
}

func TestBusyCommandPortFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.Listen = "tcp://" + ln.Addr().String()
	code := Run(context.Background(), Options{Config: cfg, Builder: &fake.Builder{}, Window: &fake.Window{}})
	assert.Equal(t, ExitInternal, code)
}

func TestDrawFailureIsInternalError(t *testing.T) {
	cfg := testConfig()
	code := Run(context.Background(), Options{
		Config:  cfg,
		Builder: &fake.Builder{},
		Window:  &fake.Window{DrawErr: assert.AnError},
	})
	assert.Equal(t, ExitInternal, code)
}

func TestDisplayReloadReachesWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "display_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("MonitorSize: [51, 29]\n"), 0o644))

	cfg := testConfig()
	cfg.Render.FPS = 200
	cfg.Render.Width, cfg.Render.Height = 1020, 580
	cfg.Render.DisplayConfig = path
	window := render.NewHeadless(render.HeadlessConfig{
		FPS: cfg.Render.FPS, Width: cfg.Render.Width, Height: cfg.Render.Height,
		Display: config.DefaultDisplay(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	code := make(chan int, 1)
	go func() {
		code <- Run(ctx, Options{Config: cfg, Builder: &fake.Builder{}, Window: window})
	}()

	require.Eventually(t, func() bool { return window.Frames() > 0 }, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("MonitorSize: [51, 29]\nDisplayRegion: [0, 0, 25.5, 29]\n"), 0o644))
	require.Eventually(t, func() bool {
		return window.Viewport() == config.Viewport{Width: 510, Height: 580}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.Equal(t, ExitOK, <-code)
}
