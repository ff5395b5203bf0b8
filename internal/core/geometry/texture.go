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
	"math/rand/v2"
)

const (
	TextureGrain = "grain"

	DefaultGrainIntensity = 0.08
	DefaultGrainOpacity   = 0.15
)

// TextureConfig is the typed form of a texture_overlay instruction.
type TextureConfig struct {
	Kind      string  `json:"kind"`
	Intensity float64 `json:"intensity"`
	Opacity   float64 `json:"opacity"`
}

// DefaultTextureConfig is a light grain.
func DefaultTextureConfig() TextureConfig {
	return TextureConfig{Kind: TextureGrain, Intensity: DefaultGrainIntensity, Opacity: DefaultGrainOpacity}
}

// Validate requires a known kind and intensity and opacity within [0,1].
func (c TextureConfig) Validate() error {
	if c.Kind != TextureGrain {
		return fmt.Errorf("%w: unsupported texture %q", ErrInvalidParam, c.Kind)
	}
	if c.Intensity < 0 || c.Intensity > 1 {
		return fmt.Errorf("%w: grain intensity must be in [0,1], got %v", ErrInvalidParam, c.Intensity)
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return fmt.Errorf("%w: grain opacity must be in [0,1], got %v", ErrInvalidParam, c.Opacity)
	}
	return nil
}

// Grain synthesizes luminance noise: one independent frame per output frame,
// normally distributed around 128 with a deviation of 255*Intensity.
type Grain struct {
	TextureConfig
	Seed uint64
}

// NewGrain creates a grain generator. Frames are derived from seed and the
// frame index, so the same inputs always give the same noise.
func NewGrain(cfg TextureConfig, seed uint64) (*Grain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Grain{TextureConfig: cfg, Seed: seed}, nil
}

// Deviation is the noise standard deviation in 8-bit luminance steps.
func (g *Grain) Deviation() float64 {
	return 255 * g.Intensity
}

// Strength is the visible deviation once the noise frame is composited at
// Opacity. The encoder feeds it to its noise filter.
func (g *Grain) Strength() float64 {
	return g.Deviation() * g.Opacity
}

// Frame returns the w*h luminance samples of frame index. The same index
// always yields the same frame; different indexes are independent.
func (g *Grain) Frame(index, w, h int) []uint8 {
	r := rand.New(rand.NewPCG(g.Seed, uint64(index)))
	out := make([]uint8, w*h)
	dev := g.Deviation()
	for i := range out {
		out[i] = uint8(clamp(128+r.NormFloat64()*dev, 0, 255))
	}
	return out
}
