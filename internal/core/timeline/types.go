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

// Package timeline composes resolved scenes into concrete layers and joins
// them into the ordered timeline handed to the encoder. Everything here is
// pure computation over probed asset metadata; no pixels or samples are
// touched.
package timeline

import (
	"github.com/jaycherian/gcp-go-media-render/internal/core/audio"
	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/textfx"
	"github.com/jaycherian/gcp-go-media-render/internal/core/transition"
)

// Source is a downloaded asset and its probed properties.
type Source struct {
	Path     string
	Kind     model.MediaType
	Size     geometry.Size // pixels; zero for audio
	Duration float64       // seconds; zero for still images
}

// SceneAssets are the local files a scene needs.
type SceneAssets struct {
	Media        Source
	Narration    *Source           // nil when the scene has an explicit duration
	SoundEffects map[string]string // sfx id to local path
}

// SceneComposite is one scene fully laid out on its own clock, starting at 0.
type SceneComposite struct {
	Index    int
	SceneID  string
	Duration float64
	Media    Source
	Framing  geometry.Framing
	Speed    geometry.SpeedConfig

	PanZoom  *geometry.PanZoom
	Vignette *geometry.Vignette
	Grade    *geometry.ColorGradeConfig
	Grain    *geometry.Grain

	Texts []*TextLayer
	Audio *audio.SceneMix

	TransitionToNext *model.TransitionSpec
}

// SourceSpan is how many seconds of a video source the scene consumes.
func (s *SceneComposite) SourceSpan() float64 {
	return s.Speed.SourceSpan(s.Duration)
}

// BoxStyle is the filled rectangle drawn behind a caption.
type BoxStyle struct {
	Rect    geometry.Rect
	Padding float64
	Color   model.Color
	Opacity float64
}

// TextLayer is a caption placed on the frame for [Start, End) of the scene.
// X and Y locate the top-left of the text itself; CX and CY its center.
type TextLayer struct {
	Effect      string
	Text        string
	Start       float64
	End         float64
	FontSize    float64
	Color       model.Color
	StrokeColor *model.Color
	StrokeWidth float64
	Size        geometry.Size
	X, Y        float64
	CX, CY      float64

	Box        *BoxStyle
	Fade       *textfx.Fade
	Popup      *textfx.Popup
	Typewriter *textfx.Typewriter
	Karaoke    *textfx.Karaoke
}

// Duration returns how long the layer is on screen.
func (l *TextLayer) Duration() float64 {
	return l.End - l.Start
}

// Timeline is the ordered sequence of scenes, joined by Joins, with an
// optional music bed over the whole output.
type Timeline struct {
	Size     geometry.Size
	FPS      int
	Scenes   []*SceneComposite
	Joins    []*transition.Transition // Joins[i] sits between Scenes[i] and Scenes[i+1]
	Music    *audio.MusicPlan
	Duration float64
}

// SceneStart is where scene i begins on the output clock.
func (t *Timeline) SceneStart(i int) float64 {
	start := 0.0
	for k := 0; k < i && k < len(t.Scenes); k++ {
		start += t.Scenes[k].Duration
		if k < len(t.Joins) {
			start -= t.Joins[k].Overlap()
		}
	}
	return start
}
