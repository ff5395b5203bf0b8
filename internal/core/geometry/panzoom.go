// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package geometry

import (
	"fmt"
	"strings"
)

// ZoomDirection selects whether the crop shrinks (in) or grows (out).
type ZoomDirection string

const (
	ZoomIn  ZoomDirection = "in"
	ZoomOut ZoomDirection = "out"
)

// PanDirection names the edge the crop starts from.
type PanDirection string

const (
	PanLeft   PanDirection = "left"
	PanRight  PanDirection = "right"
	PanTop    PanDirection = "top"
	PanBottom PanDirection = "bottom"
	PanCenter PanDirection = "center"
)

var panAliases = map[string]PanDirection{
	"left": PanLeft, "izquierda": PanLeft,
	"right": PanRight, "derecha": PanRight,
	"top": PanTop, "up": PanTop, "arriba": PanTop,
	"bottom": PanBottom, "down": PanBottom, "abajo": PanBottom,
	"center": PanCenter, "centro": PanCenter,
}

// ParsePanDirection maps a direction keyword (English or Spanish) to a
// PanDirection. Unknown values fall back to center.
func ParsePanDirection(in string) PanDirection {
	if d, ok := panAliases[strings.ToLower(strings.TrimSpace(in))]; ok {
		return d
	}
	return PanCenter
}

// DefaultZoomFactor is the crop ratio between the full and the zoomed frame.
const DefaultZoomFactor = 1.15

// KenBurnsConfig is the typed form of a ken_burns instruction.
type KenBurnsConfig struct {
	ZoomDirection ZoomDirection `json:"zoom_dir"`
	PanDirection  PanDirection  `json:"pan_dir"`
	ZoomFactor    float64       `json:"factor_zoom"`
}

// DefaultKenBurnsConfig zooms in while panning from the right edge.
func DefaultKenBurnsConfig() KenBurnsConfig {
	return KenBurnsConfig{ZoomDirection: ZoomIn, PanDirection: PanRight, ZoomFactor: DefaultZoomFactor}
}

// Validate requires a known zoom direction and a zoom factor above 1.
func (c KenBurnsConfig) Validate() error {
	if c.ZoomDirection != ZoomIn && c.ZoomDirection != ZoomOut {
		return fmt.Errorf("%w: zoom direction %q", ErrInvalidParam, c.ZoomDirection)
	}
	if c.ZoomFactor <= 1 {
		return fmt.Errorf("%w: zoom factor must be > 1, got %v", ErrInvalidParam, c.ZoomFactor)
	}
	return nil
}

// PanZoom is a Ken Burns move over a source of size Source. The crop window
// interpolates linearly from Initial to Final over Duration, and every crop is
// scaled back to Target.
type PanZoom struct {
	Source   Size
	Target   Size
	Duration float64
	Initial  Rect
	Final    Rect
}

// NewPanZoom computes the start and end crop windows. Zooming in starts at the
// full frame and ends at frame/factor; zooming out is the reverse. The pan
// direction offsets the initial center toward the named edge by half the
// final crop extent, and the center always returns to the true center.
func NewPanZoom(source, target Size, duration float64, cfg KenBurnsConfig) (*PanZoom, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: negative duration %v", ErrInvalidParam, duration)
	}

	full := Size{W: source.W, H: source.H}
	zoomed := Size{W: source.W / cfg.ZoomFactor, H: source.H / cfg.ZoomFactor}
	initial, final := full, zoomed
	if cfg.ZoomDirection == ZoomOut {
		initial, final = zoomed, full
	}

	marginX, marginY := final.W/2, final.H/2
	center := Size{W: source.W / 2, H: source.H / 2}
	start := center
	switch cfg.PanDirection {
	case PanLeft:
		start.W = marginX
	case PanRight:
		start.W = source.W - marginX
	case PanTop:
		start.H = marginY
	case PanBottom:
		start.H = source.H - marginY
	}

	return &PanZoom{
		Source:   source,
		Target:   target,
		Duration: duration,
		Initial:  Rect{CX: start.W, CY: start.H, W: initial.W, H: initial.H},
		Final:    Rect{CX: center.W, CY: center.H, W: final.W, H: final.H},
	}, nil
}

// Progress maps a time to the [0,1] interpolation fraction.
func (p *PanZoom) Progress(t float64) float64 {
	if p.Duration <= 0 {
		return 1
	}
	return clamp(t/p.Duration, 0, 1)
}

// CropAt returns the crop window at time t, clamped to [0, Duration].
func (p *PanZoom) CropAt(t float64) Rect {
	f := p.Progress(t)
	return Rect{
		CX: lerp(p.Initial.CX, p.Final.CX, f),
		CY: lerp(p.Initial.CY, p.Final.CY, f),
		W:  lerp(p.Initial.W, p.Final.W, f),
		H:  lerp(p.Initial.H, p.Final.H, f),
	}
}

// ScaleAt is the factor that maps the crop at t back onto the target width.
func (p *PanZoom) ScaleAt(t float64) float64 {
	c := p.CropAt(t)
	if c.W <= 0 {
		return 1
	}
	return p.Target.W / c.W
}
