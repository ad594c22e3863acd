// File: fake/scene.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"errors"
	"sync"

	"github.com/momentics/hioload-maze/api"
)

// ErrBroken is returned for configs carrying "Broken: true".
var ErrBroken = errors.New("broken scene")

// Scene is a named scene that remembers its config.
type Scene struct {
	name   string
	Config api.MazeConfig
}

// Name implements api.Scene.
func (s *Scene) Name() string { return s.name }

// Builder builds fake scenes. A config with Broken: true fails, one with
// Panic: true panics.
type Builder struct {
	mu     sync.Mutex
	builds []api.MazeConfig
}

var _ api.SceneBuilder = (*Builder)(nil)

// Build implements api.SceneBuilder.
func (b *Builder) Build(cfg api.MazeConfig) (api.Scene, error) {
	b.mu.Lock()
	b.builds = append(b.builds, cfg)
	b.mu.Unlock()
	if cfg["Panic"] == true {
		panic("fake builder panic")
	}
	if cfg["Broken"] == true {
		return nil, ErrBroken
	}
	name, _ := cfg["Name"].(string)
	if name == "" {
		name = "maze"
	}
	return &Scene{name: name, Config: cfg}, nil
}

// Default implements api.SceneBuilder.
func (b *Builder) Default() api.Scene {
	return &Scene{name: "default"}
}

// Builds returns every config passed to Build.
func (b *Builder) Builds() []api.MazeConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.MazeConfig(nil), b.builds...)
}
