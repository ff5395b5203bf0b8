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

import "math"

const (
	DefaultPopupDuration = 0.5

	backC1 = 1.70158
	backC3 = backC1 + 1
)

// EaseOutBack is the standard back-ease-out curve: it overshoots past 1 and
// settles at exactly 1 when u reaches 1.
func EaseOutBack(u float64) float64 {
	return 1 + backC3*math.Pow(u-1, 3) + backC1*math.Pow(u-1, 2)
}

// Popup scales a caption in with EaseOutBack over AnimDuration.
type Popup struct {
	AnimDuration float64
}

// ScaleAt returns the size multiplier at t seconds into the caption.
func (p Popup) ScaleAt(t float64) float64 {
	if p.AnimDuration <= 0 || t >= p.AnimDuration {
		return 1
	}
	if t < 0 {
		t = 0
	}
	return EaseOutBack(t / p.AnimDuration)
}
