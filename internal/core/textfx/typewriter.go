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

// Stage is one step of a typewriter reveal: a fixed prefix of the text shown
// for Duration seconds starting at Start.
type Stage struct {
	Text     string
	Start    float64
	Duration float64
}

// Typewriter reveals text one character at a time. An empty text produces a
// single invisible placeholder spanning Duration.
type Typewriter struct {
	Stages      []Stage
	Duration    float64
	FPS         int
	Placeholder bool
}

// NewTypewriter splits totalDuration evenly over the characters of text.
func NewTypewriter(text string, totalDuration float64, fps int) Typewriter {
	runes := []rune(text)
	tw := Typewriter{Duration: totalDuration, FPS: fps}
	if len(runes) == 0 {
		tw.Placeholder = true
		return tw
	}
	per := totalDuration / float64(len(runes))
	tw.Stages = make([]Stage, len(runes))
	for i := range runes {
		tw.Stages[i] = Stage{
			Text:     string(runes[:i+1]),
			Start:    float64(i) * per,
			Duration: per,
		}
	}
	return tw
}

// OpacityAt is 0 for the placeholder and 1 otherwise.
func (t Typewriter) OpacityAt(float64) float64 {
	if t.Placeholder {
		return 0
	}
	return 1
}

// VisibleAt returns the prefix shown at time t.
func (t Typewriter) VisibleAt(at float64) string {
	visible := ""
	for _, s := range t.Stages {
		if at >= s.Start {
			visible = s.Text
		}
	}
	return visible
}
