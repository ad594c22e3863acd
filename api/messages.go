// File: api/messages.go
// Package api defines the control-plane contracts shared by the render process,
// its control worker and the operator-side tools.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Command names a control request.
type Command string

const (
	CmdQueryVersion     Command = "QueryVersion"
	CmdLoadModel        Command = "LoadModel"
	CmdUpdateDataServer Command = "UpdateDataServer"
	CmdExit             Command = "Exit"
)

// MazeConfig is the scene description carried by LoadModel.
// The control plane never looks inside it.
type MazeConfig map[string]any

// ControlMessage is a single request on the command endpoint.
// It is transmitted as one serialized unit and is never partially applied.
type ControlMessage struct {
	Command           Command    `yaml:"Command" json:"Command"`
	MazeConfig        MazeConfig `yaml:"MazeConfig,omitempty" json:"MazeConfig,omitempty"`
	DataServerAddress string     `yaml:"DataServerAddress,omitempty" json:"DataServerAddress,omitempty"`
}

// Reply is a short ASCII token answering exactly one ControlMessage.
type Reply string

const (
	ReplyModelLoaded       Reply = "ModelLoaded"
	ReplyModelFailure      Reply = "ModelFailure"
	ReplyDataServerUpdated Reply = "DataServerUpdated"
	ReplyDataServerFailure Reply = "DataServerFailure"
	ReplyExiting           Reply = "Exiting"
	ReplyUnknownCommand    Reply = "UnknownCommand"
	ReplyProtocolError     Reply = "ProtocolError"
)

// VersionReply formats the QueryVersion answer, e.g. "Version:1.1;".
func VersionReply(version string) Reply {
	return Reply("Version:" + version + ";")
}

// DefaultCommandPort and DefaultPositionPort are the well-known endpoint ports.
const (
	DefaultCommandPort  = 8557
	DefaultPositionPort = 8556
)
