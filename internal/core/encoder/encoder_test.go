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

package encoder_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-media-render/internal/core/encoder"
	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mono struct{}

func (mono) Measure(text string, _ float64) geometry.Size {
	return geometry.Size{W: float64(10 * len([]rune(text))), H: 20}
}

type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	return f.out, f.err
}

func build(t *testing.T, cfg *model.RenderConfig, r *model.Recipe, music *timeline.Source, narrations ...float64) *timeline.Timeline {
	descs := make([]*model.SceneDescriptor, len(narrations))
	for i := range narrations {
		id := string(rune('a' + i))
		descs[i] = &model.SceneDescriptor{ID: id, MediaURL: "gs://b/" + id + ".jpg", AudioURL: "gs://b/" + id + ".mp3"}
	}
	a := timeline.NewAssembler(nil, mono{}, 0.5, 24)
	var scenes []*timeline.SceneComposite
	for i, rs := range recipe.NewInterpreter(nil).Resolve(descs, r, cfg) {
		sc, err := a.ComposeScene(rs, &timeline.SceneAssets{
			Media:        timeline.Source{Path: "/w/" + descs[i].ID + ".jpg", Kind: model.MediaTypeImage, Size: geometry.Size{W: 1920, H: 1080}},
			Narration:    &timeline.Source{Path: "/w/" + descs[i].ID + ".mp3", Duration: narrations[i]},
			SoundEffects: map[string]string{"boom": "/w/boom.wav"},
		}, cfg)
		require.NoError(t, err)
		scenes = append(scenes, sc)
	}
	tl, err := a.Assemble(scenes, music, cfg)
	require.NoError(t, err)
	return tl
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

// outputDuration returns the -t that bounds the output file. Still image
// inputs carry their own -t earlier in the argument list.
func outputDuration(t *testing.T, args []string) string {
	require.GreaterOrEqual(t, len(args), 3)
	require.Equal(t, "-t", args[len(args)-3])
	return args[len(args)-2]
}

func TestParseProbe(t *testing.T) {
	p, err := encoder.ParseProbe([]byte(`{"streams":[{"codec_type":"video","width":1920,"height":1080}],"format":{}}`))
	require.NoError(t, err)
	assert.True(t, p.HasVideo)
	assert.False(t, p.HasAudio)
	assert.Equal(t, 0.0, p.Duration)
	assert.Equal(t, geometry.Size{W: 1920, H: 1080}, p.Size())

	p, err = encoder.ParseProbe([]byte(`{"streams":[{"codec_type":"audio","duration":"3.250000"}],"format":{"duration":"3.264000"}}`))
	require.NoError(t, err)
	assert.True(t, p.HasAudio)
	assert.Equal(t, 3.264, p.Duration)

	_, err = encoder.ParseProbe([]byte(`{"streams":[]}`))
	assert.Error(t, err)
	_, err = encoder.ParseProbe([]byte(`garbage`))
	assert.Error(t, err)
}

func TestProberRunsFFprobe(t *testing.T) {
	r := &fakeRunner{out: []byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"2.5"}}`)}
	p, err := encoder.NewProber(r, "/usr/bin/ffprobe").Probe(context.Background(), "/tmp/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 2.5, p.Duration)
	assert.Equal(t, "/usr/bin/ffprobe", r.name)
	assert.Equal(t, "/tmp/a.mp3", r.args[len(r.args)-1])
}

func TestPlanFadeJoin(t *testing.T) {
	cfg := &model.RenderConfig{TransitionType: model.TransitionFade, TransitionDuration: 0.5}
	tl := build(t, cfg, nil, nil, 3.0, 4.5)
	plan, err := encoder.BuildPlan(tl, "/work", "/work/out.mp4", encoder.Options{FontFile: "/fonts/go.ttf"})
	require.NoError(t, err)

	assert.Contains(t, plan.Graph, "xfade=transition=fade:duration=0.5:offset=3[j0v]")
	assert.Contains(t, plan.Graph, "acrossfade=d=0.5")
	assert.Equal(t, "8", outputDuration(t, plan.Args))
	assert.Equal(t, "3.5", argAfter(plan.Args, "-t"))
	assert.Equal(t, "/work/out.mp4", plan.Args[len(plan.Args)-1])
	assert.Equal(t, "[j0v]", argAfter(plan.Args, "-map"))
	assert.Equal(t, "libx264", argAfter(plan.Args, "-c:v"))
	// Two images with -loop and two narrations.
	assert.Equal(t, 2, strings.Count(strings.Join(plan.Args, " "), "-loop 1"))
}

func TestPlanCutJoinAndSlide(t *testing.T) {
	r := &model.Recipe{Scenes: []*model.SceneRecipe{
		{SceneID: "a", TransitionToNext: &model.TransitionSpec{Type: model.TransitionSlide, Duration: 0.4, Direction: "arriba"}},
	}}
	tl := build(t, nil, r, nil, 2.0, 2.0, 2.0)
	plan, err := encoder.BuildPlan(tl, "/work", "/work/out.mp4", encoder.Options{FontFile: "/f.ttf"})
	require.NoError(t, err)
	assert.Contains(t, plan.Graph, "xfade=transition=slideup:duration=0.4:offset=2.1")
	assert.Contains(t, plan.Graph, "[j0v][v2]concat=n=2:v=1:a=0[j1v]")
	assert.Contains(t, plan.Graph, "[j0a][a2]concat=n=2:v=0:a=1[j1a]")
	assert.Equal(t, "7.1", outputDuration(t, plan.Args))
}

func TestPlanEffects(t *testing.T) {
	vol := 0.5
	r := &model.Recipe{Scenes: []*model.SceneRecipe{{
		SceneID: "a",
		VisualEffects: []*model.EffectInstruction{
			{Type: model.EffectKenBurns},
			{Type: model.EffectVignette},
			{Type: model.EffectColorGrade, Params: map[string]interface{}{"filter": "sepia"}},
			{Type: model.EffectTextureOverlay},
		},
		TextOverlays: []*model.TextOverlay{
			{Text: "Hello", Duration: 2, Effect: &model.TextEffect{Type: model.TextEffectPopup}},
			{Text: "abc", Effect: &model.TextEffect{Type: model.TextEffectTypewriter}},
		},
		SoundEffects: []*model.SoundEffectRef{{SfxID: "boom", StartTime: 1.5, Volume: &vol}},
	}}}
	tl := build(t, nil, r, nil, 2.0)
	plan, err := encoder.BuildPlan(tl, "/work", "/work/out.mp4", encoder.Options{FontFile: "/f.ttf"})
	require.NoError(t, err)

	g := plan.Graph
	assert.Contains(t, g, "zoompan=z='1280/(1280+(-166.9565)*min(1,on/59))'")
	assert.Contains(t, g, "hue=s=0")
	assert.Contains(t, g, "drawbox=x=0:y=0:w=iw:h=ih:color=0x704214@0.4:t=fill")
	assert.Contains(t, g, "geq=r='0':g='0':b='0':a='255*clip((hypot((X-W/2)/(W/2),(Y-H/2)/(H/2))-0.7)/0.4,0,1)'")
	assert.Contains(t, g, "[v0base][v0mask]overlay=0:0:shortest=1[v0vig]")
	assert.Contains(t, g, "noise=alls=3:allf=t")
	assert.Contains(t, g, "adelay=1500:all=1")
	assert.Contains(t, g, "amix=inputs=2:normalize=0:duration=longest")
	assert.Contains(t, g, "fontsize='max(1,48*(1+2.7016*pow(min(1,max(0,(t-0)/0.5))-1,3)+1.7016*pow(min(1,max(0,(t-0)/0.5))-1,2)))'")
	assert.Equal(t, 4, strings.Count(g, "drawtext="), "one popup and three typewriter stages")

	var texts []string
	for path, data := range plan.Files {
		assert.Equal(t, "/work", filepath.Dir(path))
		texts = append(texts, string(data))
	}
	assert.ElementsMatch(t, []string{"Hello", "a", "ab", "abc"}, texts)
}

func TestPlanMusicAndSilence(t *testing.T) {
	tl := build(t, nil, nil, &timeline.Source{Path: "/w/music.mp3", Duration: 2}, 2.0, 2.0)
	tl.Scenes[1].Audio.Narration = nil
	plan, err := encoder.BuildPlan(tl, "/work", "/work/out.mp4", encoder.Options{FontFile: "/f.ttf"})
	require.NoError(t, err)

	assert.Equal(t, "2", argAfter(plan.Args, "-stream_loop"))
	assert.Contains(t, plan.Graph, "volume=0.25[music]")
	assert.Contains(t, plan.Graph, "anullsrc=r=48000:cl=stereo,atrim=duration=2.5")
	assert.Equal(t, "mixed", plan.Audio)
}

func TestPlanEmpty(t *testing.T) {
	_, err := encoder.BuildPlan(nil, "/w", "/w/o.mp4", encoder.Options{})
	assert.ErrorIs(t, err, encoder.ErrEmptyTimeline)
}

func TestEncoderWritesFilesAndRuns(t *testing.T) {
	work := t.TempDir()
	r := &fakeRunner{}
	r.out = nil
	tl := build(t, nil, &model.Recipe{Scenes: []*model.SceneRecipe{{
		SceneID:      "a",
		TextOverlays: []*model.TextOverlay{{Text: "caption"}},
	}}}, nil, 1.0)

	enc := encoder.NewEncoder(r, "/opt/ffmpeg", encoder.Options{}, nil)
	require.NoError(t, enc.Encode(context.Background(), tl, work, filepath.Join(work, "out.mp4")))

	assert.Equal(t, "/opt/ffmpeg", r.name)
	assert.FileExists(t, filepath.Join(work, "font.ttf"))
	data, err := os.ReadFile(filepath.Join(work, "caption-001.txt"))
	require.NoError(t, err)
	assert.Equal(t, "caption", string(data))
	assert.Contains(t, strings.Join(r.args, " "), "fontfile='"+filepath.Join(work, "font.ttf")+"'")
}
