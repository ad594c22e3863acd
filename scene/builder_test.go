// File: scene/builder_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-maze/api"
)

func mazeConfig(t *testing.T, doc string) api.MazeConfig {
	t.Helper()
	var mc api.MazeConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &mc))
	return mc
}

func TestDefaultScene(t *testing.T) {
	b, err := NewBuilder("")
	require.NoError(t, err)
	s := b.Default().(*Scene)
	assert.Equal(t, "default", s.Name())
	require.Len(t, s.Placements, 2)
	assert.Equal(t, 24.0, s.Placements[0].X)
	assert.Equal(t, -24.0, s.Placements[1].X)
	assert.Equal(t, 240.0, s.Placements[0].Width)
	assert.Equal(t, DefaultColor, s.Placements[0].Color)
	assert.True(t, s.Background)
}

func TestEmptyConfigBuildsDefaultWalls(t *testing.T) {
	b := &Builder{}
	sc, err := b.Build(api.MazeConfig{})
	require.NoError(t, err)
	assert.Len(t, sc.(*Scene).Placements, 2)
}

func TestWallPlacement(t *testing.T) {
	b := &Builder{}
	sc, err := b.Build(mazeConfig(t, `
TrackLength: 200
EnableBackgroundTexture: false
TrackFeatures:
  stripes:
    Type: Wall
    Bounds: [20, 60]
    XLocation: Right
    XOffset: 2
    Color: [1, 0, 0]
`))
	require.NoError(t, err)
	s := sc.(*Scene)
	assert.False(t, s.Background)
	require.Len(t, s.Placements, 2)

	p := s.Placements[0]
	assert.Equal(t, 26.0, p.X)
	assert.Equal(t, 40.0, p.Y)
	assert.Equal(t, 10.0, p.Z)
	assert.Equal(t, 40.0, p.Width)
	assert.Equal(t, "Left", p.Facing)
	assert.Equal(t, [3]float64{1, 0, 0}, p.Color)
	assert.False(t, p.Forward)

	fwd := s.Placements[1]
	assert.True(t, fwd.Forward)
	assert.Equal(t, 240.0, fwd.Y)
}

func TestFeaturesAreOrderedAndDuplicated(t *testing.T) {
	b := &Builder{}
	sc, err := b.Build(mazeConfig(t, `
TrackFeatures:
  b_tower:
    Type: Cylinder
    XPos: 0
    YPos: 100
    DuplicateForward: false
  a_pillars:
    Type: WallCylinder
    YPos: 50
  c_sign:
    Type: Plane
    Width: 10
    Height: 5
    YPos: 30
    Facing: Back
`))
	require.NoError(t, err)
	s := sc.(*Scene)

	// a_pillars: 2 sides x 2, b_tower: 1, c_sign: 2
	require.Len(t, s.Placements, 7)
	assert.Equal(t, "a_pillars", s.Placements[0].Feature)
	assert.Equal(t, 40.0, s.Placements[0].Height)
	assert.Equal(t, 20.0, s.Placements[0].Z)
	assert.Equal(t, "b_tower", s.Placements[4].Feature)
	assert.Equal(t, 60.0, s.Placements[4].Height)
	assert.Equal(t, "outward", s.Placements[4].Facing)
	assert.Equal(t, "c_sign", s.Placements[5].Feature)
	assert.Equal(t, 270.0, s.Placements[6].Y)
}

func TestInvalidFeatures(t *testing.T) {
	b := &Builder{}
	cases := map[string]string{
		"unknown type":   "TrackFeatures: {x: {Type: Pyramid}}",
		"missing bounds": "TrackFeatures: {x: {Type: Wall}}",
		"reversed":       "TrackFeatures: {x: {Type: Wall, Bounds: [50, 10]}}",
		"bad side":       "TrackFeatures: {x: {Type: Wall, Bounds: [0, 10], XLocation: Up}}",
		"plane size":     "TrackFeatures: {x: {Type: Plane, Width: 4}}",
		"cylinder pos":   "TrackFeatures: {x: {Type: Cylinder, YPos: 3}}",
		"color":          "TrackFeatures: {x: {Type: Wall, Bounds: [0, 10], Color: [2, 0, 0]}}",
		"alpha":          "TrackFeatures: {x: {Type: Wall, Bounds: [0, 10], Alpha: 1.5}}",
		"wrong shape":    "TrackFeatures: [1, 2]",
		"negative":       "TrackLength: -5",
	}
	for name, doc := range cases {
		_, err := b.Build(mazeConfig(t, doc))
		assert.ErrorIs(t, err, ErrInvalidScene, name)
	}
}

func TestTextureMustExist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grating.png"), []byte{0x89}, 0o644))
	b, err := NewBuilder(dir)
	require.NoError(t, err)

	_, err = b.Build(mazeConfig(t, "TrackFeatures: {x: {Type: Wall, Bounds: [0, 10], Texture: grating.png}}"))
	require.NoError(t, err)

	_, err = b.Build(mazeConfig(t, "TrackFeatures: {x: {Type: Wall, Bounds: [0, 10], Texture: missing.png}}"))
	assert.ErrorIs(t, err, ErrInvalidScene)
}
