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

// DefaultFadeDuration is the ramp length in seconds when the effect gives none.
const DefaultFadeDuration = 0.5

// Fade ramps opacity in over FadeDuration, holds, then ramps out over the
// same length. FadeDuration is capped at half of Duration.
type Fade struct {
	Duration     float64
	FadeDuration float64
}

// NewFade shortens fade to half of duration when the two ramps would overlap.
func NewFade(duration, fade float64) Fade {
	if fade < 0 {
		fade = 0
	}
	if fade > duration/2 {
		fade = duration / 2
	}
	return Fade{Duration: duration, FadeDuration: fade}
}

// OpacityAt returns the opacity at t seconds into the caption.
func (f Fade) OpacityAt(t float64) float64 {
	if t < 0 || t > f.Duration {
		return 0
	}
	if f.FadeDuration <= 0 {
		return 1
	}
	if t < f.FadeDuration {
		return t / f.FadeDuration
	}
	if t > f.Duration-f.FadeDuration {
		return (f.Duration - t) / f.FadeDuration
	}
	return 1
}
