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

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is an 8-bit RGB triple. In JSON it is either an `[r,g,b]` array, a
// `#rrggbb` string or one of the NamedColors.
type Color struct {
	R, G, B uint8
}

// NamedColors are the color names accepted in recipes.
var NamedColors = map[string]Color{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"yellow": {255, 255, 0},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"orange": {255, 165, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"cyan":   {0, 255, 255},
	"magenta": {255, 0, 255},
}

// Hex renders the color the way ffmpeg filters expect it (0xRRGGBB).
func (c Color) Hex() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor accepts a color name or a #rrggbb / 0xrrggbb literal.
func ParseColor(in string) (Color, error) {
	s := strings.ToLower(strings.TrimSpace(in))
	if c, ok := NamedColors[s]; ok {
		return c, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("unknown color %q", in)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("unknown color %q: %w", in, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MarshalJSON writes the #rrggbb form.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([]int{int(c.R), int(c.G), int(c.B)})
}

// UnmarshalJSON accepts a named color, a #rrggbb string or an [r,g,b] array.
func (c *Color) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseColor(name)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var rgb []float64
	if err := json.Unmarshal(data, &rgb); err != nil {
		return fmt.Errorf("color must be a name or an [r,g,b] array: %w", err)
	}
	if len(rgb) != 3 {
		return fmt.Errorf("color array needs 3 components, got %d", len(rgb))
	}
	*c = Color{R: channel(rgb[0]), G: channel(rgb[1]), B: channel(rgb[2])}
	return nil
}

func channel(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Anchor keywords for text placement.
const (
	AnchorCenter = "center"
	AnchorTop    = "top"
	AnchorBottom = "bottom"
	AnchorLeft   = "left"
	AnchorRight  = "right"
)

// Position places an overlay on the frame. Each axis is either a keyword
// anchor or an absolute pixel coordinate of the overlay's top-left corner.
// The zero value is centered on both axes.
type Position struct {
	Horizontal string   // center, left or right when X is nil.
	Vertical   string   // center, top or bottom when Y is nil.
	X          *float64 // Absolute x in pixels.
	Y          *float64 // Absolute y in pixels.
}

// NewAnchorPosition builds a Position from a single keyword such as "bottom".
func NewAnchorPosition(keyword string) Position {
	p := Position{Horizontal: AnchorCenter, Vertical: AnchorCenter}
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case AnchorTop:
		p.Vertical = AnchorTop
	case AnchorBottom:
		p.Vertical = AnchorBottom
	case AnchorLeft:
		p.Horizontal = AnchorLeft
	case AnchorRight:
		p.Horizontal = AnchorRight
	}
	return p
}

// MarshalJSON writes a two element array with a keyword or number per axis.
func (p Position) MarshalJSON() ([]byte, error) {
	axis := func(kw string, v *float64) interface{} {
		if v != nil {
			return *v
		}
		if kw == "" {
			return AnchorCenter
		}
		return kw
	}
	return json.Marshal([]interface{}{axis(p.Horizontal, p.X), axis(p.Vertical, p.Y)})
}

// UnmarshalJSON accepts a keyword, or a pair whose elements are keywords or
// numbers.
func (p *Position) UnmarshalJSON(data []byte) error {
	var keyword string
	if err := json.Unmarshal(data, &keyword); err == nil {
		*p = NewAnchorPosition(keyword)
		return nil
	}
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("position must be a keyword or a two element array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("position array needs 2 elements, got %d", len(pair))
	}
	out := Position{Horizontal: AnchorCenter, Vertical: AnchorCenter}
	for i, item := range pair {
		switch v := item.(type) {
		case float64:
			value := v
			if i == 0 {
				out.X = &value
			} else {
				out.Y = &value
			}
		case string:
			kw := strings.ToLower(strings.TrimSpace(v))
			if i == 0 {
				out.Horizontal = kw
			} else {
				out.Vertical = kw
			}
		default:
			return fmt.Errorf("unsupported position element %v", item)
		}
	}
	*p = out
	return nil
}
