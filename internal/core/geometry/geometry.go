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

// Package geometry holds the pure math behind the visual effects: Ken Burns
// pan/zoom, the elliptical vignette mask, color grading, film grain and speed
// changes. Nothing here touches pixels on disk; the encoder turns these values
// into filter expressions.
package geometry

import (
	"errors"
	"math"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrInvalidParam is wrapped by every configuration validation failure.
var ErrInvalidParam = errors.New("invalid effect parameter")

// Size is a width/height pair in pixels.
type Size struct {
	W float64
	H float64
}

// Rect is a crop window described by its center and extent.
type Rect struct {
	CX float64
	CY float64
	W  float64
	H  float64
}

// Left and Top return the top-left corner of the rectangle.
func (r Rect) Left() float64 { return r.CX - r.W/2 }
func (r Rect) Top() float64  { return r.CY - r.H/2 }

func lerp(from, to, f float64) float64 {
	if f <= 0 {
		return from
	}
	if f >= 1 {
		return to
	}
	return from + (to-from)*f
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Framing describes how a source is fitted into the output frame before any
// effect runs.
type Framing struct {
	Scale  float64 // Uniform scale applied to the source.
	Scaled Size    // Source size after scaling.
	Offset Size    // Top-left placement (negative when cropped).
	Target Size
}

// Frame computes cover (fill and crop) or fit (letterbox) framing of source
// into target.
func Frame(source, target Size, cover bool) Framing {
	if source.W <= 0 || source.H <= 0 {
		return Framing{Scale: 1, Scaled: target, Target: target}
	}
	sx, sy := target.W/source.W, target.H/source.H
	scale := math.Min(sx, sy)
	if cover {
		scale = math.Max(sx, sy)
	}
	scaled := Size{W: source.W * scale, H: source.H * scale}
	return Framing{
		Scale:  scale,
		Scaled: scaled,
		Offset: Size{W: (target.W - scaled.W) / 2, H: (target.H - scaled.H) / 2},
		Target: target,
	}
}

// EffectType ties each typed config to its recipe vocabulary tag.
func (KenBurnsConfig) EffectType() string   { return model.EffectKenBurns }
func (VignetteConfig) EffectType() string   { return model.EffectVignette }
func (ColorGradeConfig) EffectType() string { return model.EffectColorGrade }
func (TextureConfig) EffectType() string    { return model.EffectTextureOverlay }
func (SpeedConfig) EffectType() string      { return model.EffectSpeedChange }
