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

package recipe

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrUnknownEffect marks an effect type outside the visual vocabulary.
var ErrUnknownEffect = errors.New("unknown effect type")

// ResolvedScene is one submitted scene paired with its validated instructions.
type ResolvedScene struct {
	Index      int
	Scene      *model.SceneDescriptor
	Recipe     *model.SceneRecipe // never nil; empty when the recipe had no entry
	Effects    []VisualEffect
	Texts      []*model.TextOverlay
	Sounds     []*model.SoundEffectRef
	Transition *model.TransitionSpec // to the next scene; nil for a cut
}

// Interpreter resolves a recipe against the requested scenes.
type Interpreter struct {
	logger *slog.Logger
}

// NewInterpreter logs skipped effects to logger, or slog.Default() when nil.
func NewInterpreter(logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{logger: logger}
}

// Resolve returns one ResolvedScene per descriptor, in descriptor order. It
// never fails: recipe entries are matched by id, duplicates keep the first
// occurrence and anything unusable is dropped with a warning.
func (i *Interpreter) Resolve(scenes []*model.SceneDescriptor, r *model.Recipe, cfg *model.RenderConfig) []*ResolvedScene {
	byID := make(map[string]*model.SceneRecipe)
	if r != nil {
		for _, sr := range r.Scenes {
			if sr == nil {
				continue
			}
			id := strings.TrimSpace(sr.SceneID)
			if _, dup := byID[id]; dup {
				i.logger.Warn("duplicate scene recipe ignored", "scene_id", id)
				continue
			}
			byID[id] = sr
		}
	}

	out := make([]*ResolvedScene, 0, len(scenes))
	for idx, scene := range scenes {
		sr, ok := byID[strings.TrimSpace(scene.ID)]
		if !ok {
			sr = &model.SceneRecipe{SceneID: scene.ID}
		}
		rs := &ResolvedScene{Index: idx, Scene: scene, Recipe: sr}
		log := i.logger.With("scene_index", idx, "scene_id", scene.ID)

		for _, fx := range sr.VisualEffects {
			eff, err := DecodeEffect(fx)
			if err != nil {
				log.Warn("visual effect skipped", "type", effectName(fx), "error", err)
				continue
			}
			rs.Effects = append(rs.Effects, eff)
		}

		for _, t := range sr.TextOverlays {
			if t == nil || (strings.TrimSpace(t.Text) == "" && t.EffectType() != model.TextEffectKaraoke) {
				continue
			}
			switch t.EffectType() {
			case model.TextEffectNone, model.TextEffectFade, model.TextEffectPopup,
				model.TextEffectTypewriter, model.TextEffectKaraoke:
				rs.Texts = append(rs.Texts, t)
			default:
				log.Warn("text effect unknown, rendering as plain text", "type", t.EffectType())
				plain := *t
				plain.Effect = nil
				rs.Texts = append(rs.Texts, &plain)
			}
		}
		if cfg != nil && cfg.Subtitles && strings.TrimSpace(scene.Script) != "" {
			rs.Texts = append(rs.Texts, subtitle(scene.Script))
		}

		for _, s := range sr.SoundEffects {
			if s == nil || strings.TrimSpace(s.SfxID) == "" {
				continue
			}
			rs.Sounds = append(rs.Sounds, s)
		}

		rs.Transition = i.transitionFor(log, sr.TransitionToNext, cfg)
		out = append(out, rs)
	}

	if n := len(out); n > 0 && out[n-1].Transition != nil {
		if out[n-1].Recipe.TransitionToNext != nil {
			i.logger.Warn("transition on last scene dropped", "scene_id", out[n-1].Scene.ID)
		}
		out[n-1].Transition = nil
	}
	return out
}

func (i *Interpreter) transitionFor(log *slog.Logger, spec *model.TransitionSpec, cfg *model.RenderConfig) *model.TransitionSpec {
	if spec == nil {
		return cfg.Transition()
	}
	switch spec.Type {
	case model.TransitionNone:
		return nil
	case model.TransitionFade, model.TransitionSlide:
		if spec.Duration <= 0 {
			return nil
		}
		t := *spec
		return &t
	}
	log.Warn("transition type unknown, using a cut", "type", spec.Type)
	return nil
}

// subtitle renders a scene script as a boxed caption along the bottom edge.
// A zero Duration lasts until the end of the scene.
func subtitle(script string) *model.TextOverlay {
	return &model.TextOverlay{
		Text:       strings.TrimSpace(script),
		Position:   model.NewAnchorPosition(model.AnchorBottom),
		Effect:     &model.TextEffect{Type: model.TextEffectFade},
		Background: &model.TextBackground{},
	}
}

func effectName(fx *model.EffectInstruction) string {
	if fx == nil {
		return ""
	}
	return fx.Type
}
