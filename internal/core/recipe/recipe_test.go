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

package recipe_test

import (
	"encoding/json"
	"testing"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenes(ids ...string) []*model.SceneDescriptor {
	out := make([]*model.SceneDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.SceneDescriptor{ID: id, MediaURL: "gs://bucket/" + id + ".jpg", AudioURL: "gs://bucket/" + id + ".mp3"})
	}
	return out
}

func TestParseStripsFence(t *testing.T) {
	raw := "```json\n{\"scenes\":[{\"scene_id\":\"a\",\"visual_effects\":[{\"type\":\"vignette\",\"params\":{\"radius\":0.5}}]}]}\n```"
	r, err := recipe.Parse(raw)
	require.NoError(t, err)
	require.Len(t, r.Scenes, 1)
	assert.Equal(t, "a", r.Scenes[0].SceneID)
	assert.Equal(t, "vignette", r.Scenes[0].VisualEffects[0].Type)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", `{"shots":[]}`, `{"scenes":null}`, `{"scenes":"x"}`} {
		_, err := recipe.Parse(raw)
		assert.ErrorIs(t, err, recipe.ErrMalformedRecipe, raw)
	}
}

func TestParseEmptyScenes(t *testing.T) {
	r, err := recipe.Parse(`{"scenes":[]}`)
	require.NoError(t, err)
	assert.Empty(t, r.Scenes)
}

func TestResolveMissingScenesDefault(t *testing.T) {
	b := &model.SceneRecipe{
		SceneID:       "b",
		VisualEffects: []*model.EffectInstruction{{Type: model.EffectVignette}},
	}
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a", "b", "c"), &model.Recipe{Scenes: []*model.SceneRecipe{b}}, nil)

	require.Len(t, resolved, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, i, resolved[i].Index)
		assert.Equal(t, id, resolved[i].Scene.ID)
		require.NotNil(t, resolved[i].Recipe)
	}
	assert.True(t, resolved[0].Recipe.IsEmpty())
	assert.Same(t, b, resolved[1].Recipe)
	assert.True(t, resolved[2].Recipe.IsEmpty())
	assert.Empty(t, resolved[0].Effects)
	assert.Len(t, resolved[1].Effects, 1)
	assert.Nil(t, resolved[2].Transition)
}

func TestResolveNilRecipe(t *testing.T) {
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a", "b"), nil, nil)
	require.Len(t, resolved, 2)
	for _, rs := range resolved {
		assert.True(t, rs.Recipe.IsEmpty())
		assert.Nil(t, rs.Transition)
	}
}

func TestResolveExtraAndDuplicateEntries(t *testing.T) {
	first := &model.SceneRecipe{SceneID: "a", TextOverlays: []*model.TextOverlay{{Text: "first"}}}
	r := &model.Recipe{Scenes: []*model.SceneRecipe{
		first,
		{SceneID: "a", TextOverlays: []*model.TextOverlay{{Text: "second"}}},
		{SceneID: "zzz"},
	}}
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a"), r, nil)
	require.Len(t, resolved, 1)
	assert.Same(t, first, resolved[0].Recipe)
	require.Len(t, resolved[0].Texts, 1)
	assert.Equal(t, "first", resolved[0].Texts[0].Text)
}

func TestResolveSkipsUnknownAndInvalidEffects(t *testing.T) {
	r := &model.Recipe{Scenes: []*model.SceneRecipe{{
		SceneID: "a",
		VisualEffects: []*model.EffectInstruction{
			{Type: "hologram"},
			{Type: model.EffectKenBurns, Params: map[string]interface{}{"factor_zoom": 0.5}},
			{Type: model.EffectVignette, Params: map[string]interface{}{"radius": "wide"}},
			{Type: model.EffectSpeedChange, Params: map[string]interface{}{"factor": 2}},
		},
	}}}
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a"), r, nil)
	require.Len(t, resolved[0].Effects, 1)
	assert.Equal(t, geometry.SpeedConfig{Factor: 2}, resolved[0].Effects[0])
}

func TestDecodeEffectAliases(t *testing.T) {
	eff, err := recipe.DecodeEffect(&model.EffectInstruction{
		Type:   "Ken_Burns",
		Params: map[string]interface{}{"zoom_direction": "OUT", "pan_direction": "izquierda", "factor": 1.3, "unused": true},
	})
	require.NoError(t, err)
	assert.Equal(t, geometry.KenBurnsConfig{ZoomDirection: geometry.ZoomOut, PanDirection: geometry.PanLeft, ZoomFactor: 1.3}, eff)

	eff, err = recipe.DecodeEffect(&model.EffectInstruction{
		Type:   model.EffectVignette,
		Params: map[string]interface{}{"radio": 0.5, "suavizado": 0.2},
	})
	require.NoError(t, err)
	v := eff.(geometry.VignetteConfig)
	assert.Equal(t, 0.5, v.Radius)
	assert.Equal(t, 0.2, v.Softness)

	eff, err = recipe.DecodeEffect(&model.EffectInstruction{
		Type:   model.EffectColorGrade,
		Params: map[string]interface{}{"brillo": 0.1, "filtro": "b&n"},
	})
	require.NoError(t, err)
	c := eff.(geometry.ColorGradeConfig)
	assert.Equal(t, 0.1, c.Brightness)
	assert.Equal(t, 1.0, c.Saturation)
	assert.Equal(t, geometry.FilterBW, c.Filter)

	eff, err = recipe.DecodeEffect(&model.EffectInstruction{
		Type:   model.EffectTextureOverlay,
		Params: map[string]interface{}{"tipo_textura": "grano", "intensidad": 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, geometry.TextureConfig{Kind: geometry.TextureGrain, Intensity: 0.2, Opacity: geometry.DefaultGrainOpacity}, eff)
}

func TestDecodeEffectDefaults(t *testing.T) {
	eff, err := recipe.DecodeEffect(&model.EffectInstruction{Type: model.EffectKenBurns})
	require.NoError(t, err)
	assert.Equal(t, geometry.DefaultKenBurnsConfig(), eff)

	_, err = recipe.DecodeEffect(&model.EffectInstruction{Type: "glitch"})
	assert.ErrorIs(t, err, recipe.ErrUnknownEffect)

	_, err = recipe.DecodeEffect(&model.EffectInstruction{Type: model.EffectColorGrade, Params: map[string]interface{}{"filter": "neon"}})
	assert.ErrorIs(t, err, geometry.ErrInvalidParam)
}

func TestResolveTransitions(t *testing.T) {
	cfg := &model.RenderConfig{TransitionType: model.TransitionFade, TransitionDuration: 0.5}
	r := &model.Recipe{Scenes: []*model.SceneRecipe{
		{SceneID: "a", TransitionToNext: &model.TransitionSpec{Type: model.TransitionSlide, Duration: 0.3, Direction: "derecha"}},
		{SceneID: "b"},
		{SceneID: "c", TransitionToNext: &model.TransitionSpec{Type: model.TransitionFade, Duration: 1}},
	}}
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a", "b", "c"), r, cfg)

	require.NotNil(t, resolved[0].Transition)
	assert.Equal(t, model.TransitionSlide, resolved[0].Transition.Type)
	assert.Equal(t, 0.3, resolved[0].Transition.Duration)
	require.NotNil(t, resolved[1].Transition)
	assert.Equal(t, model.TransitionFade, resolved[1].Transition.Type)
	assert.Equal(t, 0.5, resolved[1].Transition.Duration)
	assert.Nil(t, resolved[2].Transition)
}

func TestResolveExplicitNoneOverridesConfig(t *testing.T) {
	cfg := &model.RenderConfig{TransitionType: model.TransitionFade, TransitionDuration: 0.5}
	r := &model.Recipe{Scenes: []*model.SceneRecipe{
		{SceneID: "a", TransitionToNext: &model.TransitionSpec{Type: model.TransitionNone}},
	}}
	resolved := recipe.NewInterpreter(nil).Resolve(scenes("a", "b"), r, cfg)
	assert.Nil(t, resolved[0].Transition)
}

func TestResolveSubtitlesFromScript(t *testing.T) {
	in := []*model.SceneDescriptor{{ID: "a", ImageURL: "https://x/a.png", Duration: 3, Script: " hello there "}}
	resolved := recipe.NewInterpreter(nil).Resolve(in, nil, &model.RenderConfig{Subtitles: true})
	require.Len(t, resolved[0].Texts, 1)
	sub := resolved[0].Texts[0]
	assert.Equal(t, "hello there", sub.Text)
	assert.Equal(t, model.AnchorBottom, sub.Position.Vertical)
	assert.NotNil(t, sub.Background)

	resolved = recipe.NewInterpreter(nil).Resolve(in, nil, &model.RenderConfig{})
	assert.Empty(t, resolved[0].Texts)
}

func TestExampleRecipeResolves(t *testing.T) {
	raw, err := json.Marshal(model.GetExampleRecipe())
	require.NoError(t, err)
	r, err := recipe.Parse(string(raw))
	require.NoError(t, err)

	resolved := recipe.NewInterpreter(nil).Resolve(scenes("scene-1", "scene-2"), r, nil)
	require.Len(t, resolved, 2)
	assert.Len(t, resolved[0].Effects, 2)
	assert.Len(t, resolved[0].Texts, 1)
	assert.Len(t, resolved[0].Sounds, 1)
	assert.NotNil(t, resolved[0].Transition)
	assert.Len(t, resolved[1].Effects, 1)
	assert.Nil(t, resolved[1].Transition)
}
