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
	"math"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

const (
	DefaultVignetteRadius   = 0.7
	DefaultVignetteSoftness = 0.4
)

// VignetteConfig is the typed form of a vignette instruction.
type VignetteConfig struct {
	Radius   float64     `json:"radius"`
	Softness float64     `json:"softness"`
	Color    model.Color `json:"color"`
}

// DefaultVignetteConfig uses DefaultVignetteRadius and DefaultVignetteSoftness.
func DefaultVignetteConfig() VignetteConfig {
	return VignetteConfig{Radius: DefaultVignetteRadius, Softness: DefaultVignetteSoftness}
}

// Validate requires a radius in (0,1] and a positive softness.
func (c VignetteConfig) Validate() error {
	if c.Radius <= 0 || c.Radius > 1 {
		return fmt.Errorf("%w: vignette radius must be in (0,1], got %v", ErrInvalidParam, c.Radius)
	}
	if c.Softness <= 0 {
		return fmt.Errorf("%w: vignette softness must be > 0, got %v", ErrInvalidParam, c.Softness)
	}
	return nil
}

// Vignette darkens the frame edges with an elliptical mask.
type Vignette struct {
	VignetteConfig
	Frame Size
}

// NewVignette creates the mask for a frame of the given size.
func NewVignette(frame Size, cfg VignetteConfig) (*Vignette, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Vignette{VignetteConfig: cfg, Frame: frame}, nil
}

// NormalizedDistance is the elliptical distance of (x, y) from the frame
// center, using separate x and y half extents. Corners of the frame sit at
// sqrt(2).
func NormalizedDistance(x, y float64, frame Size) float64 {
	hw, hh := frame.W/2, frame.H/2
	if hw <= 0 || hh <= 0 {
		return 0
	}
	return math.Hypot((x-hw)/hw, (y-hh)/hh)
}

// MaskAt is the overlay opacity at pixel (x, y): 0 inside Radius, 1 beyond
// Radius+Softness and linear in between.
func (v *Vignette) MaskAt(x, y float64) float64 {
	return v.MaskForDistance(NormalizedDistance(x, y, v.Frame))
}

// MaskForDistance is the overlay opacity at normalized radial distance d:
// 0 up to Radius, 1 from Radius+Softness, linear in between.
func (v *Vignette) MaskForDistance(d float64) float64 {
	return clamp((d-v.Radius)/v.Softness, 0, 1)
}
