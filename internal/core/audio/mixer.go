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

// Package audio plans the soundtrack: narration and sound effects per scene
// and one background music bed over the whole output. Mixing is plain
// summation of gain-scaled, time-offset tracks; there is no compression or
// ducking.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSceneMargin is added after the narration to get a scene's length.
const DefaultSceneMargin = 0.5

// MaxEffectGain caps the volume of a single sound effect.
const MaxEffectGain = 1.0

// ErrInvalidTrack rejects a track that cannot be placed in the mix.
var ErrInvalidTrack = errors.New("invalid audio track")

// SceneDuration is the narration length plus margin.
func SceneDuration(narration, margin float64) float64 {
	return narration + margin
}

// Track is a gain-scaled source placed at Offset seconds on its parent clock
// and cut after Length seconds. A zero Length plays the whole source.
type Track struct {
	Source string
	Offset float64
	Gain   float64
	Length float64
}

// End is where the track stops on its parent clock.
func (t *Track) End(sourceDuration float64) float64 {
	if t.Length > 0 {
		return t.Offset + t.Length
	}
	return t.Offset + sourceDuration
}

// SceneMix is the audio bed of one scene: narration at 0 plus the sound
// effects, all clipped to Duration.
type SceneMix struct {
	Duration  float64
	Narration *Track
	Effects   []*Track
}

// NewSceneMix builds the bed for a scene of the given duration. Narration may
// be empty for scenes with an explicit duration.
func NewSceneMix(duration float64, narration string, narrationGain float64) *SceneMix {
	m := &SceneMix{Duration: duration}
	if len(narration) > 0 {
		m.Narration = &Track{Source: narration, Gain: narrationGain, Length: duration}
	}
	return m
}

// AddEffect places a sound effect at start seconds into the scene. Effects
// are trimmed to the scene end; one starting at or past the end is rejected.
// Gains above MaxEffectGain are lowered to it.
func (m *SceneMix) AddEffect(source string, start, gain float64) (*Track, error) {
	if start < 0 || start >= m.Duration {
		return nil, fmt.Errorf("%w: effect starts at %.3fs in a %.3fs scene", ErrInvalidTrack, start, m.Duration)
	}
	if gain < 0 {
		return nil, fmt.Errorf("%w: negative gain %v", ErrInvalidTrack, gain)
	}
	t := &Track{Source: source, Offset: start, Gain: min(gain, MaxEffectGain), Length: m.Duration - start}
	m.Effects = append(m.Effects, t)
	return t, nil
}

// Tracks returns every track of the scene in mix order.
func (m *SceneMix) Tracks() []*Track {
	out := make([]*Track, 0, len(m.Effects)+1)
	if m.Narration != nil {
		out = append(out, m.Narration)
	}
	return append(out, m.Effects...)
}

// Segment is one pass of the music source laid on the output clock.
type Segment struct {
	Start  float64
	Length float64
}

// MusicPlan loops or trims the background music to exactly Total seconds.
type MusicPlan struct {
	Source         string
	Gain           float64
	SourceDuration float64
	Total          float64
	Loops          int
}

// PlanMusic computes how many passes of a source of sourceDuration cover total.
func PlanMusic(source string, sourceDuration, total, gain float64) (*MusicPlan, error) {
	if sourceDuration <= 0 {
		return nil, fmt.Errorf("%w: music has no duration", ErrInvalidTrack)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative output duration", ErrInvalidTrack)
	}
	loops := int(math.Ceil(total / sourceDuration))
	if loops < 1 {
		loops = 1
	}
	return &MusicPlan{Source: source, Gain: gain, SourceDuration: sourceDuration, Total: total, Loops: loops}, nil
}

// Segments tiles the output with passes of the source; the last one is cut so
// the lengths sum to Total.
func (p *MusicPlan) Segments() []Segment {
	out := make([]Segment, 0, p.Loops)
	for start := 0.0; start < p.Total; start += p.SourceDuration {
		out = append(out, Segment{Start: start, Length: math.Min(p.SourceDuration, p.Total-start)})
	}
	return out
}
