// File: scene/builder.go
// Package scene
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scene

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/momentics/hioload-maze/api"
)

// ErrInvalidScene wraps every validation failure.
var ErrInvalidScene = errors.New("invalid scene")

// Shape is the primitive a Placement describes.
type Shape string

const (
	ShapePlane    Shape = "plane"
	ShapeCylinder Shape = "cylinder"
)

// Placement is one positioned primitive in track coordinates: X across the
// track, Y along it, Z up.
type Placement struct {
	Feature   string
	Shape     Shape
	X, Y, Z   float64
	Width     float64 // plane length along its face; unused for cylinders
	Height    float64
	Radius    float64
	Facing    string
	Color     [3]float64
	Alpha     float64
	Texture   string
	TexScaleH float64
	TexScaleV float64
	// Forward marks the copy placed one track length ahead, which hides the
	// seam when the position wraps.
	Forward bool
}

// Scene is a built scene description.
type Scene struct {
	name       string
	Config     Config
	Background bool
	Placements []Placement
}

// Name implements api.Scene.
func (s *Scene) Name() string {
	return s.name
}

// Builder implements api.SceneBuilder.
type Builder struct {
	// TextureDir, when set, is where textures must exist.
	TextureDir string
}

var _ api.SceneBuilder = (*Builder)(nil)

// NewBuilder returns a builder resolving textures under textureDir ("" skips
// the existence check). A leading "~" is expanded.
func NewBuilder(textureDir string) (*Builder, error) {
	if textureDir == "" {
		return &Builder{}, nil
	}
	dir, err := homedir.Expand(textureDir)
	if err != nil {
		return nil, fmt.Errorf("scene: texture dir: %w", err)
	}
	return &Builder{TextureDir: dir}, nil
}

// Default returns the two gray walls shown before any LoadModel and after a
// failed one.
func (b *Builder) Default() api.Scene {
	cfg, _ := Decode(nil)
	s := &Scene{name: "default", Config: cfg, Background: cfg.BackgroundEnabled()}
	s.Placements = defaultWalls(cfg)
	return s
}

// Build validates cfg and lays out its features. Nothing is returned on error.
func (b *Builder) Build(mc api.MazeConfig) (api.Scene, error) {
	cfg, err := Decode(mc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	if cfg.TrackLength < 0 || cfg.WallHeight < 0 || cfg.WallDistance < 0 {
		return nil, fmt.Errorf("%w: track dimensions must be positive", ErrInvalidScene)
	}

	s := &Scene{name: "maze", Config: cfg, Background: cfg.BackgroundEnabled()}
	if len(cfg.TrackFeatures) == 0 {
		s.name = "default"
		s.Placements = defaultWalls(cfg)
		return s, nil
	}

	names := make([]string, 0, len(cfg.TrackFeatures))
	for n := range cfg.TrackFeatures {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		ps, err := b.place(cfg, n, cfg.TrackFeatures[n])
		if err != nil {
			return nil, fmt.Errorf("%w: feature %q: %w", ErrInvalidScene, n, err)
		}
		s.Placements = append(s.Placements, ps...)
	}
	s.name = fmt.Sprintf("maze(%d features)", len(names))
	return s, nil
}

func defaultWalls(cfg Config) []Placement {
	base := Placement{
		Feature:   "default",
		Shape:     ShapePlane,
		Y:         cfg.TrackLength / 2,
		Z:         cfg.WallHeight / 2,
		Width:     cfg.TrackLength,
		Height:    cfg.WallHeight,
		Color:     DefaultColor,
		Alpha:     1,
		TexScaleH: cfg.TrackLength / cfg.WallHeight,
		TexScaleV: 1,
	}
	right, left := base, base
	right.X, right.Facing = cfg.WallDistance, "Left"
	left.X, left.Facing = -cfg.WallDistance, "Right"
	return []Placement{right, left}
}

func (b *Builder) place(cfg Config, name string, f Feature) ([]Placement, error) {
	if err := b.checkCommon(f); err != nil {
		return nil, err
	}
	common := Placement{
		Feature: name,
		Color:   f.color(),
		Alpha:   f.alpha(),
		Texture: f.Texture,
	}

	var out []Placement
	emit := func(p Placement) {
		out = append(out, p)
		if f.duplicate() {
			fwd := p
			fwd.Y += cfg.TrackLength
			fwd.Forward = true
			out = append(out, fwd)
		}
	}

	switch f.Type {
	case TypeWall:
		if len(f.Bounds) != 2 || f.Bounds[1] <= f.Bounds[0] {
			return nil, errors.New("Bounds must be [start, end] with end > start")
		}
		left, right := f.sides()
		if !left && !right {
			return nil, fmt.Errorf("bad XLocation %q", f.XLocation)
		}
		length := f.Bounds[1] - f.Bounds[0]
		p := common
		p.Shape = ShapePlane
		p.Y = (f.Bounds[0] + f.Bounds[1]) / 2
		p.Z = cfg.WallHeight / 2
		p.Width, p.Height = length, cfg.WallHeight
		p.TexScaleH = length / cfg.WallHeight * f.texScale()
		p.TexScaleV = f.texScale()
		if right {
			r := p
			r.X, r.Facing = cfg.WallDistance+f.XOffset, "Left"
			emit(r)
		}
		if left {
			l := p
			l.X, l.Facing = -cfg.WallDistance-f.XOffset, "Right"
			emit(l)
		}

	case TypePlane:
		if f.Width <= 0 || f.Height == nil || *f.Height <= 0 {
			return nil, errors.New("Plane needs positive Width and Height")
		}
		p := common
		p.Shape = ShapePlane
		p.X, p.Y, p.Z = deref(f.XPos), deref(f.YPos), f.ZPos
		p.Width, p.Height = f.Width, *f.Height
		p.Facing = f.Facing
		p.TexScaleH = f.Width / *f.Height * f.texScale()
		p.TexScaleV = f.texScale()
		emit(p)

	case TypeWallCylinder:
		if f.YPos == nil {
			return nil, errors.New("WallCylinder needs YPos")
		}
		left, right := f.sides()
		if !left && !right {
			return nil, fmt.Errorf("bad XLocation %q", f.XLocation)
		}
		h, r := f.heightOr(cfg.WallHeight*2), f.radius()
		if h <= 0 || r <= 0 {
			return nil, errors.New("Height and Radius must be positive")
		}
		p := common
		p.Shape = ShapeCylinder
		p.Y, p.Z = *f.YPos, h/2
		p.Height, p.Radius = h, r
		p.TexScaleH = f.texScale()
		p.TexScaleV = f.texScale() * (2 * math.Pi * r) / h
		if left {
			l := p
			l.X = -cfg.WallDistance
			emit(l)
		}
		if right {
			rr := p
			rr.X = cfg.WallDistance
			emit(rr)
		}

	case TypeCylinder:
		if f.XPos == nil || f.YPos == nil {
			return nil, errors.New("Cylinder needs XPos and YPos")
		}
		h, r := f.heightOr(cfg.WallHeight*3), f.radius()
		if h <= 0 || r <= 0 {
			return nil, errors.New("Height and Radius must be positive")
		}
		p := common
		p.Shape = ShapeCylinder
		p.X, p.Y, p.Z = *f.XPos, *f.YPos, f.ZPos
		p.Height, p.Radius = h, r
		p.Facing = f.Facing
		if p.Facing == "" {
			p.Facing = "outward"
		}
		p.TexScaleH = f.texScale()
		p.TexScaleV = f.texScale() * (2 * math.Pi * r) / h
		emit(p)

	default:
		return nil, fmt.Errorf("unknown Type %q", f.Type)
	}
	return out, nil
}

func (b *Builder) checkCommon(f Feature) error {
	if f.Color != nil {
		if len(f.Color) != 3 {
			return fmt.Errorf("Color needs 3 components, got %d", len(f.Color))
		}
		for _, c := range f.Color {
			if c < 0 || c > 1 {
				return fmt.Errorf("Color component %v out of [0,1]", c)
			}
		}
	}
	if a := f.alpha(); a < 0 || a > 1 {
		return fmt.Errorf("Alpha %v out of [0,1]", a)
	}
	if f.Texture != "" && b.TextureDir != "" {
		path := f.Texture
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.TextureDir, path)
		}
		if strings.Contains(filepath.ToSlash(f.Texture), "../") {
			return fmt.Errorf("texture %q escapes the texture directory", f.Texture)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("texture: %w", err)
		}
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
