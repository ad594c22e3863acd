// File: config/display.go
// Package config
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// DisplayConfig describes the physical monitor a render process drives.
// Lengths are centimetres, angles degrees.
type DisplayConfig struct {
	MonitorSize      []float64 `yaml:"MonitorSize" toml:"MonitorSize"`
	ViewAngle        float64   `yaml:"ViewAngle" toml:"ViewAngle"`
	MouseEyeHeight   float64   `yaml:"MouseEyeHeight" toml:"MouseEyeHeight"`
	DisplayRegion    []float64 `yaml:"DisplayRegion" toml:"DisplayRegion"`
	MonitorDistance  float64   `yaml:"MonitorDistance" toml:"MonitorDistance"`
	ClippingDistance float64   `yaml:"ClippingDistance" toml:"ClippingDistance"`
	MonitorOffset    []float64 `yaml:"MonitorOffset" toml:"MonitorOffset"`
}

// Viewport is a display region in pixels.
type Viewport struct {
	X, Y, Width, Height int
}

// ErrInvalidDisplay reports an unusable display file.
var ErrInvalidDisplay = errors.New("invalid display config")

// DefaultDisplay returns a 51x29 cm monitor at 24 cm, full-screen region.
func DefaultDisplay() DisplayConfig {
	return DisplayConfig{
		MonitorSize:      []float64{51, 29},
		MouseEyeHeight:   3,
		DisplayRegion:    []float64{0, 0, 51, 29},
		MonitorDistance:  24,
		ClippingDistance: 0.05,
		MonitorOffset:    []float64{0, 0},
	}
}

// LoadDisplay reads a display file over the defaults. A missing
// DisplayRegion covers the whole configured monitor.
func LoadDisplay(path string) (DisplayConfig, error) {
	d := DefaultDisplay()
	p, err := homedir.Expand(path)
	if err != nil {
		return d, fmt.Errorf("display: %w", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return d, fmt.Errorf("display: %w", err)
	}
	d.DisplayRegion = nil
	if err := Decode(filepath.Ext(p), raw, &d); err != nil {
		return DefaultDisplay(), fmt.Errorf("%w: %s: %v", ErrInvalidDisplay, p, err)
	}
	if d.DisplayRegion == nil && len(d.MonitorSize) == 2 {
		d.DisplayRegion = []float64{0, 0, d.MonitorSize[0], d.MonitorSize[1]}
	}
	if err := d.Validate(); err != nil {
		return DefaultDisplay(), err
	}
	return d, nil
}

// Validate checks the vector lengths and positive distances.
func (d DisplayConfig) Validate() error {
	switch {
	case len(d.MonitorSize) != 2 || d.MonitorSize[0] <= 0 || d.MonitorSize[1] <= 0:
		return fmt.Errorf("%w: MonitorSize must be two positive numbers", ErrInvalidDisplay)
	case len(d.DisplayRegion) != 4:
		return fmt.Errorf("%w: DisplayRegion must have four numbers", ErrInvalidDisplay)
	case len(d.MonitorOffset) != 2:
		return fmt.Errorf("%w: MonitorOffset must have two numbers", ErrInvalidDisplay)
	case d.MonitorDistance <= 0:
		return fmt.Errorf("%w: MonitorDistance must be > 0", ErrInvalidDisplay)
	case d.ClippingDistance <= 0:
		return fmt.Errorf("%w: ClippingDistance must be > 0", ErrInvalidDisplay)
	}
	return nil
}

// Viewport converts DisplayRegion from monitor units to pixels of a
// hres x vres framebuffer.
func (d DisplayConfig) Viewport(hres, vres int) Viewport {
	w, h := d.MonitorSize[0], d.MonitorSize[1]
	r := d.DisplayRegion
	return Viewport{
		X:      int(r[0] / w * float64(hres)),
		Y:      int(r[1] / h * float64(vres)),
		Width:  int(r[2] / w * float64(hres)),
		Height: int(r[3] / h * float64(vres)),
	}
}
