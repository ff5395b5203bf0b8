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

package textfx_test

import (
	"testing"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/textfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monospace measures every rune as 10px wide and 20px tall.
type monospace struct{}

func (monospace) Measure(text string, _ float64) geometry.Size {
	return geometry.Size{W: 10 * float64(utf8.RuneCountInString(text)), H: 20}
}

func TestFadeOpacity(t *testing.T) {
	f := textfx.NewFade(4, 1)
	assert.Equal(t, 0.0, f.OpacityAt(0))
	assert.Equal(t, 0.5, f.OpacityAt(0.5))
	assert.Equal(t, 1.0, f.OpacityAt(2))
	assert.Equal(t, 0.5, f.OpacityAt(3.5))
	assert.Equal(t, 0.0, f.OpacityAt(4))

	short := textfx.NewFade(1, 2)
	assert.Equal(t, 0.5, short.FadeDuration, "fade is capped at half the caption")
}

func TestBoxedLayout(t *testing.T) {
	padding := 15.0
	box := textfx.NewBox(&model.TextBackground{Padding: &padding})
	assert.Equal(t, textfx.DefaultBoxOpacity, box.Opacity)

	layout := box.Layout(geometry.Size{W: 200, H: 40}, 640, 360)
	assert.Equal(t, 230.0, layout.Background.W)
	assert.Equal(t, 70.0, layout.Background.H)
	assert.Equal(t, layout.Background.CX, layout.Text.CX)
	assert.Equal(t, layout.Background.CY, layout.Text.CY)

	assert.Equal(t, textfx.DefaultBoxPadding, textfx.NewBox(nil).Padding)
}

func TestPopupCurve(t *testing.T) {
	const c1 = 1.70158
	const c3 = c1 + 1
	assert.InDelta(t, 1-c3+c1, textfx.EaseOutBack(0), 1e-12)
	assert.InDelta(t, 0.0, textfx.EaseOutBack(0), 1e-12)
	assert.Equal(t, 1.0, textfx.EaseOutBack(1))

	p := textfx.Popup{AnimDuration: 0.5}
	assert.InDelta(t, 0.0, p.ScaleAt(0), 1e-12)
	assert.Equal(t, 1.0, p.ScaleAt(0.5))
	assert.Equal(t, 1.0, p.ScaleAt(3))

	overshoot := false
	for tt := 0.0; tt < 0.5; tt += 0.01 {
		if p.ScaleAt(tt) > 1 {
			overshoot = true
		}
	}
	assert.True(t, overshoot, "back easing overshoots before settling")
	assert.InDelta(t, 1+c3*(-0.125)+c1*0.25, p.ScaleAt(0.25), 1e-12)
}

func TestTypewriterStages(t *testing.T) {
	tw := textfx.NewTypewriter("cat", 3.0, 30)
	require.Len(t, tw.Stages, 3)
	for i, want := range []string{"c", "ca", "cat"} {
		assert.Equal(t, want, tw.Stages[i].Text)
		assert.Equal(t, 1.0, tw.Stages[i].Duration)
		assert.Equal(t, float64(i), tw.Stages[i].Start)
	}
	assert.Equal(t, "ca", tw.VisibleAt(1.5))
	assert.Equal(t, 1.0, tw.OpacityAt(0))
}

func TestTypewriterEmpty(t *testing.T) {
	tw := textfx.NewTypewriter("", 2.5, 30)
	assert.True(t, tw.Placeholder)
	assert.Empty(t, tw.Stages)
	assert.Equal(t, 2.5, tw.Duration)
	assert.Equal(t, 0.0, tw.OpacityAt(1))
}

func TestTypewriterCountsRunes(t *testing.T) {
	tw := textfx.NewTypewriter("año", 3, 24)
	require.Len(t, tw.Stages, 3)
	assert.Equal(t, "añ", tw.Stages[1].Text)
}

func TestKaraokeLayout(t *testing.T) {
	words := []model.WordTimestamp{
		{Word: "hello", StartTime: 0, EndTime: 0.5},
		{Word: "big", StartTime: 0.5, EndTime: 1.0},
		{Word: "world", StartTime: 1.0, EndTime: 1.75},
	}
	k, err := textfx.NewKaraoke(words, geometry.Size{W: 1280, H: 720}, 600, 48, monospace{})
	require.NoError(t, err)

	assert.Equal(t, "hello big world", k.Phrase)
	assert.Equal(t, (1280.0-150.0)/2, k.X0)
	assert.Equal(t, 1.75, k.Duration)
	require.Len(t, k.Words, 3)
	assert.Equal(t, k.X0, k.Words[0].X)
	assert.Equal(t, k.X0+50+10, k.Words[1].X)
	assert.Equal(t, k.X0+50+10+30+10, k.Words[2].X)

	for i := 1; i < len(k.Words); i++ {
		assert.Equal(t, k.Words[i-1].End, k.Words[i].Start, "windows are contiguous")
	}
	assert.Equal(t, 1, k.ActiveAt(0.5))
	assert.Equal(t, -1, k.ActiveAt(1.75))
}

func TestKaraokeNoWords(t *testing.T) {
	_, err := textfx.NewKaraoke(nil, geometry.Size{W: 100, H: 100}, 0, 48, monospace{})
	assert.ErrorIs(t, err, textfx.ErrNoWords)
}

func TestPlace(t *testing.T) {
	frame := geometry.Size{W: 1280, H: 720}
	box := geometry.Size{W: 200, H: 100}

	x, y := textfx.Place(model.NewAnchorPosition("center"), frame, box)
	assert.Equal(t, 540.0, x)
	assert.Equal(t, 310.0, y)

	x, y = textfx.Place(model.NewAnchorPosition("bottom"), frame, box)
	assert.Equal(t, 540.0, x)
	assert.Equal(t, 620.0, y)

	px := 12.0
	x, _ = textfx.Place(model.Position{X: &px, Vertical: model.AnchorTop}, frame, box)
	assert.Equal(t, 12.0, x)
}

func TestDefaultMeasurer(t *testing.T) {
	m := textfx.DefaultMeasurer()
	short := m.Measure("hi", 48)
	long := m.Measure("hello there", 48)
	assert.Greater(t, short.W, 0.0)
	assert.Greater(t, long.W, short.W)
	assert.Greater(t, m.Measure("hi", 96).W, short.W)
	assert.Equal(t, 2*short.H, m.Measure("hi\nhi", 48).H)
}
