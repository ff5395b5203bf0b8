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
	"errors"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrNoWords is returned for a karaoke overlay without word timings.
var ErrNoWords = errors.New("karaoke needs at least one word")

var (
	DefaultKaraokeColor     = model.NamedColors["white"]
	DefaultKaraokeHighlight = model.NamedColors["yellow"]
)

// WordHighlight is a word drawn in the highlight color at X, visible during
// [Start, End).
type WordHighlight struct {
	Word  string
	X     float64
	Width float64
	Start float64
	End   float64
}

// Karaoke is the full phrase as a static layer plus one highlight per word.
//
// Words must be sorted and non-overlapping; the layout keeps input order and
// does not repair overlaps.
type Karaoke struct {
	Phrase     string
	PhraseSize geometry.Size
	X0         float64
	Y          float64
	SpaceWidth float64
	FontSize   float64
	Normal     model.Color
	Highlight  model.Color
	Words      []WordHighlight
	Duration   float64
}

// NewKaraoke lays out words left-aligned from (frameWidth - phraseWidth)/2
// on baseline y. Each highlight sits at the sum of the preceding word widths
// plus one space width each. Duration is the last word's end time.
func NewKaraoke(words []model.WordTimestamp, frame geometry.Size, y, fontSize float64, m Measurer) (*Karaoke, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	phrase := strings.Join(parts, " ")
	phraseSize := m.Measure(phrase, fontSize)

	k := &Karaoke{
		Phrase:     phrase,
		PhraseSize: phraseSize,
		X0:         (frame.W - phraseSize.W) / 2,
		Y:          y,
		SpaceWidth: m.Measure(" ", fontSize).W,
		FontSize:   fontSize,
		Normal:     DefaultKaraokeColor,
		Highlight:  DefaultKaraokeHighlight,
		Words:      make([]WordHighlight, len(words)),
		Duration:   words[len(words)-1].EndTime,
	}

	x := k.X0
	for i, w := range words {
		width := m.Measure(w.Word, fontSize).W
		k.Words[i] = WordHighlight{Word: w.Word, X: x, Width: width, Start: w.StartTime, End: w.EndTime}
		x += width + k.SpaceWidth
	}
	return k, nil
}

// ActiveAt returns the index of the highlighted word at t, or -1.
func (k *Karaoke) ActiveAt(t float64) int {
	for i, w := range k.Words {
		if t >= w.Start && t < w.End {
			return i
		}
	}
	return -1
}
