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

// Visual effect types understood by the composer. The vocabulary is closed but
// may grow; unknown types are skipped with a warning.
const (
	EffectKenBurns       = "ken_burns"
	EffectVignette       = "vignette"
	EffectColorGrade     = "color_grade"
	EffectTextureOverlay = "texture_overlay"
	EffectSpeedChange    = "speed_change"
)

// Text animation types.
const (
	TextEffectNone       = "none"
	TextEffectFade       = "fade"
	TextEffectPopup      = "popup"
	TextEffectTypewriter = "typewriter"
	TextEffectKaraoke    = "karaoke"
)

// Recipe is the declarative edit plan returned by the generative model. Its
// JSON shape is a public contract and must not change.
type Recipe struct {
	Scenes []*SceneRecipe `json:"scenes"`
}

// SceneRecipe holds the effects for a single scene. Every list is optional.
type SceneRecipe struct {
	SceneID          string               `json:"scene_id"`
	VisualEffects    []*EffectInstruction `json:"visual_effects,omitempty"`
	TextOverlays     []*TextOverlay       `json:"text_overlays,omitempty"`
	SoundEffects     []*SoundEffectRef    `json:"sound_effects,omitempty"`
	TransitionToNext *TransitionSpec      `json:"transition_to_next,omitempty"` // Absent on the last scene.
}

// IsEmpty reports whether the scene recipe requests nothing at all.
func (s *SceneRecipe) IsEmpty() bool {
	return s == nil || (len(s.VisualEffects) == 0 && len(s.TextOverlays) == 0 &&
		len(s.SoundEffects) == 0 && s.TransitionToNext == nil)
}

// EffectInstruction is a visual effect tag plus its loosely typed parameters.
// The recipe interpreter decodes Params into the typed config for Type.
type EffectInstruction struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// TextOverlay is a caption placed on a scene. Times are relative to the scene start.
type TextOverlay struct {
	Text       string          `json:"text"`
	StartTime  float64         `json:"start_time"`
	Duration   float64         `json:"duration"`
	Position   Position        `json:"position"`
	Effect     *TextEffect     `json:"effect,omitempty"`
	Style      *TextStyle      `json:"style,omitempty"`
	Background *TextBackground `json:"background,omitempty"`
}

// EffectType returns the animation type, "none" when absent.
func (t *TextOverlay) EffectType() string {
	if t.Effect == nil || len(t.Effect.Type) == 0 {
		return TextEffectNone
	}
	return t.Effect.Type
}

// TextEffect carries the type specific animation parameters.
type TextEffect struct {
	Type           string          `json:"type"`
	AnimDuration   float64         `json:"anim_duration,omitempty"`   // popup
	FadeDuration   float64         `json:"fade_duration,omitempty"`   // fade
	Words          []WordTimestamp `json:"words,omitempty"`           // karaoke
	HighlightColor *Color          `json:"highlight_color,omitempty"` // karaoke
}

// WordTimestamp is one karaoke word and the window it is highlighted in.
type WordTimestamp struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// TextStyle sets the look of an overlay. Zero values take the defaults.
type TextStyle struct {
	FontSize    float64 `json:"fontsize,omitempty"`
	Color       *Color  `json:"color,omitempty"`
	StrokeColor *Color  `json:"stroke_color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
}

// TextBackground draws a box beneath the text. Nil pointer fields take the
// defaults from the text effects package.
type TextBackground struct {
	Padding *float64 `json:"padding,omitempty"`
	Color   *Color   `json:"bg_color,omitempty"`
	Opacity *float64 `json:"bg_opacity,omitempty"`
}

// SoundEffectRef places a catalog sound effect inside a scene.
type SoundEffectRef struct {
	SfxID     string   `json:"sfx_id"`
	StartTime float64  `json:"start_time"`
	Volume    *float64 `json:"volume,omitempty"`
}

// Gain returns the SFX volume, defaulting to 1. Values are clamped to [0,1].
func (s *SoundEffectRef) Gain() float64 {
	if s.Volume == nil {
		return 1.0
	}
	return min(max(*s.Volume, 0), 1)
}

// VolumeInRange reports whether an explicit volume lies within [0,1].
func (s *SoundEffectRef) VolumeInRange() bool {
	return s.Volume == nil || (*s.Volume >= 0 && *s.Volume <= 1)
}

// TransitionSpec joins a scene with the next one.
type TransitionSpec struct {
	Type      TransitionType `json:"type"`
	Duration  float64        `json:"duration"`
	Direction string         `json:"direction,omitempty"`
}
