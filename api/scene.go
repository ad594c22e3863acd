// File: api/scene.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts of the render front end. Geometry, textures and projection live
// behind these interfaces.

package api

// Scene is a built scene ready to be drawn.
type Scene interface {
	// Name identifies the scene in logs.
	Name() string
}

// SceneBuilder turns a MazeConfig into a Scene.
type SceneBuilder interface {
	// Build constructs a scene; an error leaves nothing half-applied.
	Build(cfg MazeConfig) (Scene, error)
	// Default returns the empty scene used at start-up and after a failed Build.
	Default() Scene
}

// Window is driven by the render loop once per frame.
type Window interface {
	// ShouldClose reports a user-initiated quit.
	ShouldClose() bool
	SetScene(s Scene)
	// ShowAddress toggles the host address banner.
	ShowAddress(show bool)
	// DrawFrame draws one frame with the camera at position along the track.
	// It paces the loop (vsync or a frame timer).
	DrawFrame(position float64) error
	Close() error
}
