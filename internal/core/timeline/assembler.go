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

package timeline

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/audio"
	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
	"github.com/jaycherian/gcp-go-media-render/internal/core/textfx"
	"github.com/jaycherian/gcp-go-media-render/internal/core/transition"
)

// DefaultFPS is the output frame rate when none is configured.
const DefaultFPS = 24

// ErrNoScenes is returned when there is nothing to assemble.
var ErrNoScenes = errors.New("timeline has no scenes")

// Assembler turns resolved scenes and their probed assets into a Timeline.
type Assembler struct {
	logger   *slog.Logger
	measurer textfx.Measurer
	margin   float64
	fps      int
}

// NewAssembler creates an assembler.
//
// Inputs:
//   - logger: Receives skipped effects; nil uses slog.Default().
//   - measurer: Measures text; nil uses the embedded Go font.
//   - margin: Seconds added after the narration of each scene; negative
//     values use audio.DefaultSceneMargin.
//   - fps: Output frame rate; values <= 0 use DefaultFPS.
//
// Outputs:
//   - *Assembler: The assembler.
func NewAssembler(logger *slog.Logger, measurer textfx.Measurer, margin float64, fps int) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if measurer == nil {
		measurer = textfx.DefaultMeasurer()
	}
	if margin < 0 {
		margin = audio.DefaultSceneMargin
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Assembler{logger: logger, measurer: measurer, margin: margin, fps: fps}
}

// FPS returns the output frame rate.
func (a *Assembler) FPS() int {
	return a.fps
}

func targetSize(cfg *model.RenderConfig) geometry.Size {
	r := cfg.Resolution()
	return geometry.Size{W: float64(r.Width), H: float64(r.Height)}
}

// sceneDuration is the narration length plus margin, or the explicit
// duration when the scene carries no narration.
func (a *Assembler) sceneDuration(scene *model.SceneDescriptor, assets *SceneAssets) (float64, error) {
	if assets.Narration != nil {
		if assets.Narration.Duration <= 0 {
			return 0, fmt.Errorf("scene %q: narration has no duration", scene.ID)
		}
		return audio.SceneDuration(assets.Narration.Duration, a.margin), nil
	}
	if scene.Duration > 0 {
		return scene.Duration, nil
	}
	return 0, fmt.Errorf("scene %q: needs narration or an explicit duration", scene.ID)
}

// ComposeScene lays out one scene. An error here fails the whole job.
func (a *Assembler) ComposeScene(rs *recipe.ResolvedScene, assets *SceneAssets, cfg *model.RenderConfig) (*SceneComposite, error) {
	log := a.logger.With("scene_index", rs.Index, "scene_id", rs.Scene.ID)
	duration, err := a.sceneDuration(rs.Scene, assets)
	if err != nil {
		return nil, err
	}
	frame := targetSize(cfg)

	sc := &SceneComposite{
		Index:            rs.Index,
		SceneID:          rs.Scene.ID,
		Duration:         duration,
		Media:            assets.Media,
		Framing:          geometry.Frame(assets.Media.Size, frame, cfg.CoverFrame()),
		Speed:            geometry.DefaultSpeedConfig(),
		TransitionToNext: rs.Transition,
	}

	for _, eff := range rs.Effects {
		switch e := eff.(type) {
		case geometry.KenBurnsConfig:
			pz, err := geometry.NewPanZoom(frame, frame, duration, e)
			if err != nil {
				return nil, fmt.Errorf("scene %q: ken burns: %w", rs.Scene.ID, err)
			}
			sc.PanZoom = pz
		case geometry.VignetteConfig:
			v, err := geometry.NewVignette(frame, e)
			if err != nil {
				return nil, fmt.Errorf("scene %q: vignette: %w", rs.Scene.ID, err)
			}
			sc.Vignette = v
		case geometry.ColorGradeConfig:
			grade := e
			sc.Grade = &grade
		case geometry.TextureConfig:
			g, err := geometry.NewGrain(e, seedFor(rs.Scene.ID, rs.Index))
			if err != nil {
				return nil, fmt.Errorf("scene %q: texture: %w", rs.Scene.ID, err)
			}
			sc.Grain = g
		case geometry.SpeedConfig:
			if assets.Media.Kind != model.MediaTypeVideo {
				log.Warn("speed change ignored on a still image")
				continue
			}
			sc.Speed = e
		default:
			log.Warn("visual effect has no compositor", "type", eff.EffectType())
		}
	}

	for _, t := range rs.Texts {
		layer, err := a.textLayer(log, t, duration, frame)
		if err != nil {
			return nil, fmt.Errorf("scene %q: text overlay: %w", rs.Scene.ID, err)
		}
		if layer != nil {
			sc.Texts = append(sc.Texts, layer)
		}
	}

	narration := ""
	if assets.Narration != nil {
		narration = assets.Narration.Path
	}
	sc.Audio = audio.NewSceneMix(duration, narration, cfg.NarrationGain())
	for _, s := range rs.Sounds {
		path, ok := assets.SoundEffects[s.SfxID]
		if !ok {
			log.Warn("sound effect not in catalog, skipped", "sfx_id", s.SfxID)
			continue
		}
		if !s.VolumeInRange() {
			log.Warn("sound effect volume out of range, clamped", "sfx_id", s.SfxID, "volume", *s.Volume)
		}
		if _, err := sc.Audio.AddEffect(path, s.StartTime, s.Gain()); err != nil {
			log.Warn("sound effect skipped", "sfx_id", s.SfxID, "error", err)
		}
	}
	return sc, nil
}

func seedFor(id string, index int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64() ^ uint64(index)
}

func (a *Assembler) textLayer(log *slog.Logger, t *model.TextOverlay, sceneDuration float64, frame geometry.Size) (*TextLayer, error) {
	start := math.Max(0, t.StartTime)
	if start >= sceneDuration {
		log.Warn("text overlay starts after the scene ends, skipped", "text", t.Text, "start_time", t.StartTime)
		return nil, nil
	}
	end := sceneDuration
	if t.Duration > 0 {
		end = math.Min(start+t.Duration, sceneDuration)
	}

	layer := &TextLayer{
		Effect:   t.EffectType(),
		Text:     strings.TrimSpace(t.Text),
		Start:    start,
		End:      end,
		FontSize: textfx.DefaultFontSize,
		Color:    model.NamedColors["white"],
	}
	if s := t.Style; s != nil {
		if s.FontSize > 0 {
			layer.FontSize = s.FontSize
		}
		if s.Color != nil {
			layer.Color = *s.Color
		}
		if s.StrokeColor != nil && s.StrokeWidth > 0 {
			layer.StrokeColor = s.StrokeColor
			layer.StrokeWidth = s.StrokeWidth
		}
	}

	if layer.Effect == model.TextEffectKaraoke {
		ok, err := a.karaoke(log, layer, t, frame)
		if err != nil || ok {
			return layer, err
		}
		if layer.Text == "" {
			return nil, nil
		}
	}

	layer.Size = a.measurer.Measure(layer.Text, layer.FontSize)
	a.place(layer, t, frame)

	switch layer.Effect {
	case model.TextEffectFade:
		fade := t.Effect.FadeDuration
		if fade <= 0 {
			fade = textfx.DefaultFadeDuration
		}
		f := textfx.NewFade(layer.Duration(), fade)
		layer.Fade = &f
	case model.TextEffectPopup:
		anim := t.Effect.AnimDuration
		if anim <= 0 {
			anim = textfx.DefaultPopupDuration
		}
		layer.Popup = &textfx.Popup{AnimDuration: math.Min(anim, layer.Duration())}
	case model.TextEffectTypewriter:
		tw := textfx.NewTypewriter(layer.Text, layer.Duration(), a.fps)
		layer.Typewriter = &tw
	}
	return layer, nil
}

// place positions the caption, growing the anchored box by the background
// padding when there is one.
func (a *Assembler) place(layer *TextLayer, t *model.TextOverlay, frame geometry.Size) {
	if t.Background == nil {
		layer.X, layer.Y = textfx.Place(t.Position, frame, layer.Size)
		layer.CX, layer.CY = layer.X+layer.Size.W/2, layer.Y+layer.Size.H/2
		return
	}
	box := textfx.NewBox(t.Background)
	outer := box.Size(layer.Size)
	x, y := textfx.Place(t.Position, frame, outer)
	l := box.Layout(layer.Size, x+outer.W/2, y+outer.H/2)
	layer.X, layer.Y = l.Text.Left(), l.Text.Top()
	layer.CX, layer.CY = l.Text.CX, l.Text.CY
	layer.Box = &BoxStyle{Rect: l.Background, Padding: box.Padding, Color: box.Color, Opacity: box.Opacity}
}

// karaoke fills in the word layout. It reports false when the overlay has to
// fall back to plain text.
func (a *Assembler) karaoke(log *slog.Logger, layer *TextLayer, t *model.TextOverlay, frame geometry.Size) (bool, error) {
	words := t.Effect.Words
	phrase := make([]string, len(words))
	for i, w := range words {
		phrase[i] = w.Word
	}
	size := a.measurer.Measure(strings.Join(phrase, " "), layer.FontSize)
	_, y := textfx.Place(t.Position, frame, size)

	k, err := textfx.NewKaraoke(words, frame, y, layer.FontSize, a.measurer)
	if errors.Is(err, textfx.ErrNoWords) {
		log.Warn("karaoke overlay has no words, rendering plain text", "text", t.Text)
		layer.Effect = model.TextEffectNone
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if t.Effect.HighlightColor != nil {
		k.Highlight = *t.Effect.HighlightColor
	}
	if t.Style != nil && t.Style.Color != nil {
		k.Normal = *t.Style.Color
	}
	layer.Karaoke = k
	layer.Text = k.Phrase
	layer.Size = k.PhraseSize
	layer.X, layer.Y = k.X0, k.Y
	layer.CX, layer.CY = k.X0+k.PhraseSize.W/2, k.Y+k.PhraseSize.H/2
	if k.Duration > 0 {
		layer.End = math.Min(layer.Start+k.Duration, layer.End)
	}
	return true, nil
}

// Assemble joins composed scenes in order. Transitions longer than either
// neighbour are clamped to the shorter one. music may be nil.
func (a *Assembler) Assemble(scenes []*SceneComposite, music *Source, cfg *model.RenderConfig) (*Timeline, error) {
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	tl := &Timeline{Size: targetSize(cfg), FPS: a.fps, Scenes: scenes}

	lengths := make([]float64, len(scenes))
	for i, s := range scenes {
		lengths[i] = s.Duration
	}
	for i := 0; i < len(scenes)-1; i++ {
		spec := scenes[i].TransitionToNext
		if spec != nil {
			limit := math.Min(lengths[i], lengths[i+1])
			if spec.Duration > limit {
				a.logger.Warn("transition clamped to the shorter scene", "scene_index", i, "duration", spec.Duration, "clamped", limit)
				clamped := *spec
				clamped.Duration = limit
				spec = &clamped
			}
		}
		join, err := transition.New(spec, lengths[i], lengths[i+1])
		if err != nil {
			return nil, fmt.Errorf("transition after scene %d: %w", i, err)
		}
		tl.Joins = append(tl.Joins, join)
	}
	tl.Duration = transition.TotalLength(lengths, tl.Joins)

	if music != nil {
		plan, err := audio.PlanMusic(music.Path, music.Duration, tl.Duration, cfg.MusicGain())
		if err != nil {
			return nil, fmt.Errorf("background music: %w", err)
		}
		tl.Music = plan
	}
	return tl, nil
}
