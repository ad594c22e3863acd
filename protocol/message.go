// File: protocol/message.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serialization of control messages. A request is a single YAML document;
// JSON objects are accepted too, so operators can script requests with any
// JSON encoder.

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-maze/api"
)

// EncodeControlMessage serializes msg as a YAML document.
func EncodeControlMessage(msg api.ControlMessage) ([]byte, error) {
	if msg.Command == "" {
		return nil, fmt.Errorf("%w: empty Command", api.ErrMalformedMessage)
	}
	out, err := yaml.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode control message: %w", err)
	}
	return out, nil
}

// wireMessage keeps MazeConfig a plain map while decoding; yaml.v3 would
// otherwise give nested mappings the named api.MazeConfig type.
type wireMessage struct {
	Command           api.Command    `yaml:"Command" json:"Command"`
	MazeConfig        map[string]any `yaml:"MazeConfig" json:"MazeConfig"`
	DataServerAddress string         `yaml:"DataServerAddress" json:"DataServerAddress"`
}

// DecodeControlMessage parses one request payload. Nested MazeConfig
// values are map[string]any whichever encoding was used.
func DecodeControlMessage(payload []byte) (api.ControlMessage, error) {
	var msg api.ControlMessage
	var wire wireMessage
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return msg, fmt.Errorf("%w: empty payload", api.ErrMalformedMessage)
	}

	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &wire)
	} else {
		err = yaml.Unmarshal(trimmed, &wire)
	}
	if err != nil {
		return api.ControlMessage{}, fmt.Errorf("%w: %v", api.ErrMalformedMessage, err)
	}
	if wire.Command == "" {
		return api.ControlMessage{}, fmt.Errorf("%w: missing Command", api.ErrMalformedMessage)
	}
	msg.Command = wire.Command
	msg.DataServerAddress = wire.DataServerAddress
	if wire.MazeConfig != nil {
		msg.MazeConfig = api.MazeConfig(wire.MazeConfig)
	}
	return msg, nil
}
