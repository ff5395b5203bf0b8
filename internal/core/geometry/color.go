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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ColorFilter is an optional preset applied before the grade.
type ColorFilter string

const (
	FilterNone   ColorFilter = ""
	FilterBW     ColorFilter = "bw"
	FilterSepia  ColorFilter = "sepia"
	FilterInvert ColorFilter = "invert"
)

var filterAliases = map[string]ColorFilter{
	"":         FilterNone,
	"none":     FilterNone,
	"bw":       FilterBW,
	"b&n":      FilterBW,
	"b&w":      FilterBW,
	"sepia":    FilterSepia,
	"invert":   FilterInvert,
	"invertir": FilterInvert,
}

// ParseColorFilter resolves a preset name; ok is false for unknown names.
func ParseColorFilter(in string) (ColorFilter, bool) {
	f, ok := filterAliases[strings.ToLower(strings.TrimSpace(in))]
	return f, ok
}

// SepiaTint is laid over the grayscale image for the sepia preset.
var SepiaTint = Tint{Color: model.Color{R: 112, G: 66, B: 20}, Opacity: 0.4}

// Tint is a constant color laid over the whole frame.
type Tint struct {
	Color   model.Color `json:"color"`
	Opacity float64     `json:"opacity"`
}

// UnmarshalJSON accepts {"color":..,"opacity":..} or a [color, opacity] pair.
func (t *Tint) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("%w: tint pair needs color and opacity", ErrInvalidParam)
		}
		if err := json.Unmarshal(pair[0], &t.Color); err != nil {
			return err
		}
		return json.Unmarshal(pair[1], &t.Opacity)
	}
	type plain Tint
	return json.Unmarshal(data, (*plain)(t))
}

// ColorGradeConfig is the typed form of a color_grade instruction. Brightness
// is an offset in [-1,1], Contrast a relative change in [-1,1] (0 keeps the
// image), Saturation a multiplier (1 keeps the image).
type ColorGradeConfig struct {
	Brightness float64     `json:"brightness"`
	Contrast   float64     `json:"contrast"`
	Saturation float64     `json:"saturation"`
	Tint       *Tint       `json:"tint,omitempty"`
	Filter     ColorFilter `json:"filter,omitempty"`
}

// DefaultColorGradeConfig is the neutral grade.
func DefaultColorGradeConfig() ColorGradeConfig {
	return ColorGradeConfig{Saturation: 1}
}

// Validate keeps brightness and contrast within [-1,1], saturation
// non-negative and the tint opacity within [0,1].
func (c ColorGradeConfig) Validate() error {
	if c.Brightness < -1 || c.Brightness > 1 {
		return fmt.Errorf("%w: brightness must be in [-1,1], got %v", ErrInvalidParam, c.Brightness)
	}
	if c.Contrast < -1 || c.Contrast > 1 {
		return fmt.Errorf("%w: contrast must be in [-1,1], got %v", ErrInvalidParam, c.Contrast)
	}
	if c.Saturation < 0 {
		return fmt.Errorf("%w: saturation must be >= 0, got %v", ErrInvalidParam, c.Saturation)
	}
	if c.Tint != nil && (c.Tint.Opacity < 0 || c.Tint.Opacity > 1) {
		return fmt.Errorf("%w: tint opacity must be in [0,1], got %v", ErrInvalidParam, c.Tint.Opacity)
	}
	return nil
}

// ContrastFactor is the slope applied around mid gray.
func (c ColorGradeConfig) ContrastFactor() float64 {
	return 1 + c.Contrast
}

// Tints returns the overlays composited after the grade, in order.
func (c ColorGradeConfig) Tints() []Tint {
	out := make([]Tint, 0, 2)
	if c.Filter == FilterSepia {
		out = append(out, SepiaTint)
	}
	if c.Tint != nil && c.Tint.Opacity > 0 {
		out = append(out, *c.Tint)
	}
	return out
}

// RGB is a normalized color sample, each channel in [0,1].
type RGB struct {
	R, G, B float64
}

func luma(p RGB) float64 {
	return 0.299*p.R + 0.587*p.G + 0.114*p.B
}

// Saturate scales chroma around the pixel luma.
func (c ColorGradeConfig) Saturate(p RGB) RGB {
	l := luma(p)
	s := c.Saturation
	return RGB{R: l + s*(p.R-l), G: l + s*(p.G-l), B: l + s*(p.B-l)}
}

// Levels applies contrast around mid gray and then the brightness offset.
func (c ColorGradeConfig) Levels(p RGB) RGB {
	k := c.ContrastFactor()
	f := func(v float64) float64 { return (v-0.5)*k + 0.5 + c.Brightness }
	return RGB{R: f(p.R), G: f(p.G), B: f(p.B)}
}

// Apply grades a single sample: filter preset, saturation and levels, then
// the tints. Saturation and levels commute, so their order does not matter.
func (c ColorGradeConfig) Apply(p RGB) RGB {
	switch c.Filter {
	case FilterBW, FilterSepia:
		l := luma(p)
		p = RGB{R: l, G: l, B: l}
	case FilterInvert:
		p = RGB{R: 1 - p.R, G: 1 - p.G, B: 1 - p.B}
	}
	p = c.Levels(c.Saturate(p))
	for _, t := range c.Tints() {
		tc := RGB{R: float64(t.Color.R) / 255, G: float64(t.Color.G) / 255, B: float64(t.Color.B) / 255}
		p = RGB{
			R: p.R*(1-t.Opacity) + tc.R*t.Opacity,
			G: p.G*(1-t.Opacity) + tc.G*t.Opacity,
			B: p.B*(1-t.Opacity) + tc.B*t.Opacity,
		}
	}
	return RGB{R: clamp(p.R, 0, 1), G: clamp(p.G, 0, 1), B: clamp(p.B, 0, 1)}
}
