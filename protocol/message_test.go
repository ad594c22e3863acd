// File: protocol/message_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
)

func TestDecodeYAMLControlMessage(t *testing.T) {
	payload := []byte(`
Command: LoadModel
MazeConfig:
  TrackLength: 240
  TrackFeatures:
    wall1:
      Type: Wall
      Position: 40
`)
	msg, err := DecodeControlMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, api.CmdLoadModel, msg.Command)
	assert.Equal(t, 240, msg.MazeConfig["TrackLength"])
	features, ok := msg.MazeConfig["TrackFeatures"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, features, "wall1")
}

func TestDecodeJSONControlMessage(t *testing.T) {
	msg, err := DecodeControlMessage([]byte(`{"Command":"UpdateDataServer","DataServerAddress":"tcp://10.0.0.5:8556"}`))
	require.NoError(t, err)
	assert.Equal(t, api.CmdUpdateDataServer, msg.Command)
	assert.Equal(t, "tcp://10.0.0.5:8556", msg.DataServerAddress)
	assert.Nil(t, msg.MazeConfig)
}

func TestDecodeEncodingsAgree(t *testing.T) {
	fromYAML, err := DecodeControlMessage([]byte("Command: LoadModel\nMazeConfig:\n  TrackFeatures:\n    w:\n      Type: Wall\n"))
	require.NoError(t, err)
	fromJSON, err := DecodeControlMessage([]byte(`{"Command":"LoadModel","MazeConfig":{"TrackFeatures":{"w":{"Type":"Wall"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)
	assert.IsType(t, map[string]any{}, fromYAML.MazeConfig["TrackFeatures"])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, payload := range []string{"", "   ", "{not json", "Command: [unterminated", "MazeConfig: {}"} {
		_, err := DecodeControlMessage([]byte(payload))
		assert.ErrorIs(t, err, api.ErrMalformedMessage, "payload %q", payload)
	}
}

func TestEncodeControlMessage(t *testing.T) {
	out, err := EncodeControlMessage(api.ControlMessage{Command: api.CmdQueryVersion})
	require.NoError(t, err)
	assert.Equal(t, "Command: QueryVersion\n", string(out))

	back, err := DecodeControlMessage(out)
	require.NoError(t, err)
	assert.Equal(t, api.CmdQueryVersion, back.Command)

	_, err = EncodeControlMessage(api.ControlMessage{})
	assert.ErrorIs(t, err, api.ErrMalformedMessage)
}
