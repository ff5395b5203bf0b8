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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides a hardcoded example recipe that is embedded in the
// generation prompt. Showing the model a concrete instance of the expected JSON
// keeps its output consistent and parsable.
package model

// GetExampleRecipe returns a two scene recipe that exercises every part of the
// recipe contract. Only the last scene omits `transition_to_next`.
//
// Outputs:
//   - *Recipe: A pointer to a hardcoded Recipe.
func GetExampleRecipe() *Recipe {
	volume := 0.8
	padding := 20.0
	opacity := 0.7
	black := Color{}
	yellow := NamedColors["yellow"]
	white := NamedColors["white"]

	return &Recipe{
		Scenes: []*SceneRecipe{
			{
				SceneID: "scene-1",
				VisualEffects: []*EffectInstruction{
					{Type: EffectKenBurns, Params: map[string]interface{}{"zoom_dir": "in", "pan_dir": "right", "factor_zoom": 1.15}},
					{Type: EffectVignette, Params: map[string]interface{}{"radius": 0.7, "softness": 0.5}},
				},
				TextOverlays: []*TextOverlay{
					{
						Text:       "Title Text",
						StartTime:  0.5,
						Duration:   4.0,
						Position:   NewAnchorPosition(AnchorCenter),
						Effect:     &TextEffect{Type: TextEffectPopup, AnimDuration: 0.5},
						Style:      &TextStyle{FontSize: 80, Color: &yellow},
						Background: &TextBackground{Padding: &padding, Color: &black, Opacity: &opacity},
					},
				},
				SoundEffects: []*SoundEffectRef{
					{SfxID: "catalog_id", StartTime: 0.5, Volume: &volume},
				},
				TransitionToNext: &TransitionSpec{Type: TransitionSlide, Duration: 0.5, Direction: "left"},
			},
			{
				SceneID: "scene-2",
				VisualEffects: []*EffectInstruction{
					{Type: EffectColorGrade, Params: map[string]interface{}{"saturation": 0.8, "contrast": 0.1}},
				},
				TextOverlays: []*TextOverlay{
					{
						Text:      "A closing line",
						StartTime: 1.0,
						Duration:  3.0,
						Position:  NewAnchorPosition(AnchorBottom),
						Effect:    &TextEffect{Type: TextEffectFade, FadeDuration: 0.5},
						Style:     &TextStyle{FontSize: 48, Color: &white},
					},
				},
			},
		},
	}
}
