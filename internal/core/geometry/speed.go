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

import "fmt"

// SpeedConfig is the typed form of a speed_change instruction.
type SpeedConfig struct {
	Factor float64 `json:"factor"`
}

// DefaultSpeedConfig plays at normal speed.
func DefaultSpeedConfig() SpeedConfig {
	return SpeedConfig{Factor: 1}
}

// Validate requires a positive factor.
func (c SpeedConfig) Validate() error {
	if c.Factor <= 0 {
		return fmt.Errorf("%w: speed factor must be > 0, got %v", ErrInvalidParam, c.Factor)
	}
	return nil
}

// OutputDuration is the playback length of a source of length d.
func (c SpeedConfig) OutputDuration(d float64) float64 {
	return d / c.Factor
}

// SourceTime maps an output time to the source time it shows.
func (c SpeedConfig) SourceTime(t float64) float64 {
	return t * c.Factor
}

// SourceSpan is how much source a clip of output length d consumes.
func (c SpeedConfig) SourceSpan(d float64) float64 {
	return d * c.Factor
}
