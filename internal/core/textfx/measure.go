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

// Package textfx computes layout and timing for animated captions: fades,
// boxed backgrounds, pop-in scaling, typewriter reveals and karaoke word
// highlights. Text extents come from a Measurer so layout matches the font the
// encoder draws with.
package textfx

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFontSize is used when a text style sets none.
const DefaultFontSize = 48.0

// Measurer reports the rendered extent of a single or multi-line string.
type Measurer interface {
	Measure(text string, fontSize float64) geometry.Size
}

// FontMeasurer measures text with an OpenType font. Faces are cached per size.
type FontMeasurer struct {
	font  *opentype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses a TrueType/OpenType font file.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &FontMeasurer{font: f, faces: make(map[float64]font.Face)}, nil
}

var (
	defaultMeasurer     *FontMeasurer
	defaultMeasurerOnce sync.Once
)

// DefaultFontTTF is the font used when no font file is configured.
func DefaultFontTTF() []byte {
	return goregular.TTF
}

// DefaultMeasurer measures with DefaultFontTTF.
func DefaultMeasurer() *FontMeasurer {
	defaultMeasurerOnce.Do(func() {
		m, err := NewFontMeasurer(DefaultFontTTF())
		if err != nil {
			panic(err)
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}

func (m *FontMeasurer) face(size float64) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faces[size]; ok {
		return f, nil
	}
	// 72 DPI makes points equal pixels, matching drawtext's fontsize.
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	m.faces[size] = f
	return f, nil
}

// Measure returns the advance width of the widest line and the line height
// times the number of lines.
func (m *FontMeasurer) Measure(text string, fontSize float64) geometry.Size {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	face, err := m.face(fontSize)
	if err != nil {
		return geometry.Size{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := strings.Split(text, "\n")
	width := 0.0
	for _, line := range lines {
		width = math.Max(width, float64(font.MeasureString(face, line))/64)
	}
	metrics := face.Metrics()
	lineHeight := float64(metrics.Ascent+metrics.Descent) / 64
	return geometry.Size{W: width, H: lineHeight * float64(len(lines))}
}
