// File: scene/config.go
// Package scene turns a MazeConfig document into a scene description: the
// track dimensions and a flat list of placed primitives. It validates and
// lays out; it draws nothing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scene

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-maze/api"
)

// Feature types accepted in TrackFeatures.
const (
	TypeWall         = "Wall"
	TypePlane        = "Plane"
	TypeWallCylinder = "WallCylinder"
	TypeCylinder     = "Cylinder"
)

// Config is the typed form of a MazeConfig.
type Config struct {
	TrackLength             float64            `yaml:"TrackLength"`
	WallHeight              float64            `yaml:"WallHeight"`
	WallDistance            float64            `yaml:"WallDistance"`
	EnableBackgroundTexture *bool              `yaml:"EnableBackgroundTexture"`
	TrackFeatures           map[string]Feature `yaml:"TrackFeatures"`
}

// Feature is one entry of TrackFeatures. Pointer fields distinguish
// "absent" from zero where the default is not zero.
type Feature struct {
	Type             string    `yaml:"Type"`
	Bounds           []float64 `yaml:"Bounds"`
	XLocation        string    `yaml:"XLocation"`
	XOffset          float64   `yaml:"XOffset"`
	XPos             *float64  `yaml:"XPos"`
	YPos             *float64  `yaml:"YPos"`
	ZPos             float64   `yaml:"ZPos"`
	Width            float64   `yaml:"Width"`
	Height           *float64  `yaml:"Height"`
	Radius           *float64  `yaml:"Radius"`
	Facing           string    `yaml:"Facing"`
	Texture          string    `yaml:"Texture"`
	RotateTexture    float64   `yaml:"RotateTexture"`
	TextureScaling   *float64  `yaml:"TextureScaling"`
	Color            []float64 `yaml:"Color"`
	Alpha            *float64  `yaml:"Alpha"`
	DuplicateForward *bool     `yaml:"DuplicateForward"`
}

// Defaults of the track.
const (
	DefaultTrackLength  = 240.0
	DefaultWallHeight   = 20.0
	DefaultWallDistance = 24.0
	DefaultRadius       = 5.0
)

// DefaultColor is the light gray of untextured walls.
var DefaultColor = [3]float64{0.5, 0.5, 0.5}

// Decode converts the opaque document into a Config with defaults applied.
// Unrecognized keys are ignored.
func Decode(cfg api.MazeConfig) (Config, error) {
	var c Config
	if len(cfg) > 0 {
		raw, err := yaml.Marshal(map[string]any(cfg))
		if err != nil {
			return c, fmt.Errorf("scene: encode config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("scene: %w", err)
		}
	}
	if c.TrackLength == 0 {
		c.TrackLength = DefaultTrackLength
	}
	if c.WallHeight == 0 {
		c.WallHeight = DefaultWallHeight
	}
	if c.WallDistance == 0 {
		c.WallDistance = DefaultWallDistance
	}
	return c, nil
}

// BackgroundEnabled reports whether the far background cylinder is drawn.
func (c Config) BackgroundEnabled() bool {
	return c.EnableBackgroundTexture == nil || *c.EnableBackgroundTexture
}

func (f Feature) duplicate() bool {
	return f.DuplicateForward == nil || *f.DuplicateForward
}

func (f Feature) color() [3]float64 {
	if len(f.Color) != 3 {
		return DefaultColor
	}
	return [3]float64{f.Color[0], f.Color[1], f.Color[2]}
}

func (f Feature) alpha() float64 {
	if f.Alpha == nil {
		return 1
	}
	return *f.Alpha
}

func (f Feature) texScale() float64 {
	if f.TextureScaling == nil {
		return 1
	}
	return *f.TextureScaling
}

func (f Feature) radius() float64 {
	if f.Radius == nil {
		return DefaultRadius
	}
	return *f.Radius
}

func (f Feature) heightOr(def float64) float64 {
	if f.Height == nil {
		return def
	}
	return *f.Height
}

// sides returns which walls a Wall or WallCylinder occupies.
func (f Feature) sides() (left, right bool) {
	switch strings.ToLower(f.XLocation) {
	case "", "both":
		return true, true
	case "left":
		return true, false
	case "right":
		return false, true
	}
	return false, false
}
