// File: cmd/mazectl/main_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/client"
	"github.com/momentics/hioload-maze/config"
)

func TestTargetEndpoint(t *testing.T) {
	assert.Equal(t, "tcp://10.0.0.1:8557", targetEndpoint("10.0.0.1"))
	assert.Equal(t, "tcp://10.0.0.1:9000", targetEndpoint("10.0.0.1:9000"))
	assert.Equal(t, "ws://rig:8557/", targetEndpoint("ws://rig:8557/"))
	assert.Equal(t, "tcp://rig:1", targetEndpoint("tcp://rig:1"))
}

func TestBuildMessage(t *testing.T) {
	maze := filepath.Join(t.TempDir(), "maze.yaml")
	require.NoError(t, os.WriteFile(maze, []byte("TrackLength: 240\nTrackFeatures: {}\n"), 0o644))

	msg, err := buildMessage([]string{"load", maze}, config.FleetDefaults{})
	require.NoError(t, err)
	assert.Equal(t, api.CmdLoadModel, msg.Command)
	assert.Equal(t, 240, msg.MazeConfig["TrackLength"])

	msg, err = buildMessage([]string{"data-server"}, config.FleetDefaults{DataServer: "tcp://10.0.0.2:8556"})
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.2:8556", msg.DataServerAddress)

	msg, err = buildMessage([]string{"data-server", "tcp://h:1"}, config.FleetDefaults{DataServer: "tcp://x:2"})
	require.NoError(t, err)
	assert.Equal(t, "tcp://h:1", msg.DataServerAddress)

	msg, err = buildMessage([]string{"version"}, config.FleetDefaults{})
	require.NoError(t, err)
	assert.Equal(t, api.CmdQueryVersion, msg.Command)

	_, err = buildMessage([]string{"load"}, config.FleetDefaults{})
	assert.Error(t, err)
	_, err = buildMessage([]string{"dance"}, config.FleetDefaults{})
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	report(&buf, []client.Result{
		{Target: "tcp://a:8557", Reply: api.ReplyModelLoaded, Attempts: 1},
		{Target: "tcp://b:8557", Err: errors.New("target offline")},
	})
	out := buf.String()
	assert.Contains(t, out, "tcp://a:8557")
	assert.Contains(t, out, "ModelLoaded")
	assert.Contains(t, out, "FAILED  target offline")
}
