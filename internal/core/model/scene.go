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

// Package model defines the data structures exchanged by the render service.
// This file, `scene.go`, holds the job request side: the ordered scene list a
// caller submits and the per-job render configuration. These values are
// immutable once a job has been accepted.
package model

import (
	"encoding/json"
	"strings"
)

// MediaType tells the composer how to open a scene's visual source.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// TransitionType is the closed vocabulary of inter-scene transitions.
type TransitionType string

const (
	TransitionNone  TransitionType = "none"
	TransitionFade  TransitionType = "fade"
	TransitionSlide TransitionType = "slide"
)

const (
	DefaultAspectRatio     = "16:9"
	DefaultNarrationVolume = 1.0
	DefaultMusicVolume     = 0.25
)

// Resolution is an output frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectPresets maps an aspect tag to the output resolution it renders at.
var AspectPresets = map[string]Resolution{
	"16:9": {Width: 1280, Height: 720},
	"9:16": {Width: 720, Height: 1280},
	"1:1":  {Width: 1080, Height: 1080},
	"4:5":  {Width: 1080, Height: 1350},
}

// SceneDescriptor is one unit of source media plus its narration. The order of
// descriptors in a request defines the timeline order.
type SceneDescriptor struct {
	ID        string    `json:"id" validate:"required"`                               // Key matched against SceneRecipe.SceneID.
	MediaURL  string    `json:"mediaUrl,omitempty" validate:"required_without=ImageURL"` // Image or video source.
	AudioURL  string    `json:"audioUrl,omitempty"`                                   // Narration track; defines the scene length.
	ImageURL  string    `json:"imageUrl,omitempty"`                                   // Simplified variant: still image source.
	Script    string    `json:"script,omitempty"`                                     // Simplified variant: narration text, used for subtitles.
	MediaType MediaType `json:"mediaType,omitempty" validate:"omitempty,oneof=image video"`
	Duration  float64   `json:"duration,omitempty" validate:"gte=0"` // Simplified variant: explicit scene length in seconds.
}

// SourceURL returns the visual source, preferring MediaURL.
func (s *SceneDescriptor) SourceURL() string {
	if len(s.MediaURL) > 0 {
		return s.MediaURL
	}
	return s.ImageURL
}

// Kind returns the media type, defaulting to image.
func (s *SceneDescriptor) Kind() MediaType {
	if s.MediaType == MediaTypeVideo {
		return MediaTypeVideo
	}
	return MediaTypeImage
}

// HasNarration reports whether the scene length comes from a narration track.
func (s *SceneDescriptor) HasNarration() bool {
	return len(s.AudioURL) > 0
}

// RenderConfig carries the direct render settings of a job. Pointer fields are
// optional; the accessor methods apply the documented defaults.
type RenderConfig struct {
	AspectRatio        string         `json:"aspectRatio,omitempty"`
	Cover              *bool          `json:"cover,omitempty"` // true: scale and crop to fill; false: letterbox.
	Subtitles          bool           `json:"subtitles,omitempty"`
	NarrationVolume    *float64       `json:"narrationVolume,omitempty" validate:"omitempty,gte=0"`
	MusicVolume        *float64       `json:"musicVolume,omitempty" validate:"omitempty,gte=0"`
	MusicURL           string         `json:"musicUrl,omitempty"`
	TransitionType     TransitionType `json:"transitionType,omitempty" validate:"omitempty,oneof=none fade slide"`
	TransitionDuration float64        `json:"transitionDuration,omitempty" validate:"gte=0"`
	TransitionDir      string         `json:"transitionDirection,omitempty"`
}

// Resolution returns the pixel size for the configured aspect ratio. Unknown
// tags fall back to DefaultAspectRatio.
func (c *RenderConfig) Resolution() Resolution {
	if c != nil {
		if r, ok := AspectPresets[strings.TrimSpace(c.AspectRatio)]; ok {
			return r
		}
	}
	return AspectPresets[DefaultAspectRatio]
}

// CoverFrame reports whether sources are cropped to fill the frame. Defaults to true.
func (c *RenderConfig) CoverFrame() bool {
	if c == nil || c.Cover == nil {
		return true
	}
	return *c.Cover
}

// NarrationGain returns the narration volume, DefaultNarrationVolume when unset.
func (c *RenderConfig) NarrationGain() float64 {
	if c == nil || c.NarrationVolume == nil {
		return DefaultNarrationVolume
	}
	return *c.NarrationVolume
}

// MusicGain returns the music volume, DefaultMusicVolume when unset.
func (c *RenderConfig) MusicGain() float64 {
	if c == nil || c.MusicVolume == nil {
		return DefaultMusicVolume
	}
	return *c.MusicVolume
}

// Transition returns the configured default transition, or nil for a hard cut.
func (c *RenderConfig) Transition() *TransitionSpec {
	if c == nil || c.TransitionType == "" || c.TransitionType == TransitionNone || c.TransitionDuration <= 0 {
		return nil
	}
	return &TransitionSpec{Type: c.TransitionType, Duration: c.TransitionDuration, Direction: c.TransitionDir}
}

// RenderRequest is a job submission. Either Style (the AI service proposes a
// recipe) or Config (direct render settings) must be present. Recipe, when
// supplied, is used as the AI recipe and no generation call is made.
type RenderRequest struct {
	Scenes []*SceneDescriptor `json:"scenes" validate:"required,min=1,dive,required"`
	Style  string             `json:"style,omitempty" validate:"required_without=Config"`
	Config *RenderConfig      `json:"config,omitempty"`
	Recipe json.RawMessage    `json:"recipe,omitempty"`
}

// UsesAI reports whether the job needs a recipe from the generative model.
func (r *RenderRequest) UsesAI() bool {
	return len(r.Recipe) == 0 && len(strings.TrimSpace(r.Style)) > 0
}
