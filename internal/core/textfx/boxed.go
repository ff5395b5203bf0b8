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

package textfx

import (
	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

const (
	DefaultBoxPadding = 20.0
	DefaultBoxOpacity = 0.6
)

// Box is a background rectangle drawn beneath a caption.
type Box struct {
	Padding float64
	Color   model.Color
	Opacity float64
}

// NewBox applies the defaults for every field the recipe left out.
func NewBox(bg *model.TextBackground) Box {
	b := Box{Padding: DefaultBoxPadding, Opacity: DefaultBoxOpacity}
	if bg == nil {
		return b
	}
	if bg.Padding != nil && *bg.Padding >= 0 {
		b.Padding = *bg.Padding
	}
	if bg.Color != nil {
		b.Color = *bg.Color
	}
	if bg.Opacity != nil {
		b.Opacity = clampUnit(*bg.Opacity)
	}
	return b
}

// BoxLayout is a caption and its background, both centered on one point.
type BoxLayout struct {
	Background geometry.Rect
	Text       geometry.Rect
}

// Size is the extent of the background for text of the given size.
func (b Box) Size(text geometry.Size) geometry.Size {
	return geometry.Size{W: text.W + 2*b.Padding, H: text.H + 2*b.Padding}
}

// Layout centers the text and its padded background on (cx, cy).
func (b Box) Layout(text geometry.Size, cx, cy float64) BoxLayout {
	bg := b.Size(text)
	return BoxLayout{
		Background: geometry.Rect{CX: cx, CY: cy, W: bg.W, H: bg.H},
		Text:       geometry.Rect{CX: cx, CY: cy, W: text.W, H: text.H},
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
