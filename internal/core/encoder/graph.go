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

package encoder

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
	"github.com/jaycherian/gcp-go-media-render/internal/core/transition"
)

const (
	SampleRate    = 48000
	ChannelLayout = "stereo"

	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// ErrEmptyTimeline is returned for a timeline without scenes.
var ErrEmptyTimeline = errors.New("nothing to encode")

// Options control the ffmpeg invocation.
type Options struct {
	FontFile   string
	VideoCodec string
	AudioCodec string
}

// Plan is a ready to run ffmpeg invocation. Files must be written before
// running it; they hold caption text and, when needed, the font.
type Plan struct {
	Args  []string
	Graph string
	Files map[string][]byte
	Video string // output label of the video stream
	Audio string // output label of the audio stream
}

type graphBuilder struct {
	tl      *timeline.Timeline
	workDir string
	opts    Options

	inputs  []string
	filters []string
	files   map[string][]byte
	nInputs int
	nTexts  int
}

// BuildPlan renders tl into ffmpeg arguments writing to output. Caption text
// files are placed in workDir.
func BuildPlan(tl *timeline.Timeline, workDir, output string, opts Options) (*Plan, error) {
	if tl == nil || len(tl.Scenes) == 0 {
		return nil, ErrEmptyTimeline
	}
	if len(opts.VideoCodec) == 0 {
		opts.VideoCodec = DefaultVideoCodec
	}
	if len(opts.AudioCodec) == 0 {
		opts.AudioCodec = DefaultAudioCodec
	}
	b := &graphBuilder{tl: tl, workDir: workDir, opts: opts, files: make(map[string][]byte)}

	videos := make([]string, len(tl.Scenes))
	audios := make([]string, len(tl.Scenes))
	for i, sc := range tl.Scenes {
		videos[i] = b.sceneVideo(i, sc)
		audios[i] = b.sceneAudio(i, sc)
	}
	v, a := b.join(videos, audios)
	a = b.music(a)

	graph := strings.Join(b.filters, ";")
	args := []string{"-hide_banner", "-nostdin", "-y"}
	args = append(args, b.inputs...)
	args = append(args,
		"-filter_complex", graph,
		"-map", "["+v+"]",
		"-map", "["+a+"]",
		"-c:v", opts.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(tl.FPS),
		"-c:a", opts.AudioCodec,
		"-ar", strconv.Itoa(SampleRate),
		"-movflags", "+faststart",
		"-t", num(tl.Duration),
		output,
	)
	return &Plan{Args: args, Graph: graph, Files: b.files, Video: v, Audio: a}, nil
}

// num formats seconds and factors with at most 4 decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

func (b *graphBuilder) input(args ...string) int {
	b.inputs = append(b.inputs, args...)
	idx := b.nInputs
	b.nInputs++
	return idx
}

func (b *graphBuilder) chain(in []string, parts []string, out string) {
	var sb strings.Builder
	for _, l := range in {
		sb.WriteString("[" + l + "]")
	}
	sb.WriteString(strings.Join(parts, ","))
	sb.WriteString("[" + out + "]")
	b.filters = append(b.filters, sb.String())
}

func (b *graphBuilder) size() (int, int) {
	return int(b.tl.Size.W), int(b.tl.Size.H)
}

func (b *graphBuilder) sceneVideo(i int, sc *timeline.SceneComposite) string {
	w, h := b.size()
	fps := b.tl.FPS
	d := num(sc.Duration)

	var parts []string
	var idx int
	if sc.Media.Kind == model.MediaTypeVideo {
		idx = b.input("-i", sc.Media.Path)
		if sc.Speed.Factor != 1 {
			parts = append(parts, fmt.Sprintf("setpts=(PTS-STARTPTS)/%s", num(sc.Speed.Factor)))
		} else {
			parts = append(parts, "setpts=PTS-STARTPTS")
		}
	} else {
		idx = b.input("-loop", "1", "-framerate", strconv.Itoa(fps), "-t", d, "-i", sc.Media.Path)
	}

	// Cover framing scales the source to at least the target on both axes.
	if sc.Framing.Scaled.W >= sc.Framing.Target.W && sc.Framing.Scaled.H >= sc.Framing.Target.H {
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
			fmt.Sprintf("crop=%d:%d", w, h))
	} else {
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", w, h))
	}
	parts = append(parts, "setsar=1", fmt.Sprintf("fps=%d", fps))
	if sc.Media.Kind == model.MediaTypeVideo {
		// Hold the last frame when the clip is shorter than the scene.
		parts = append(parts, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", d), fmt.Sprintf("trim=duration=%s", d))
	}
	if sc.PanZoom != nil {
		parts = append(parts, panZoomFilter(sc.PanZoom, fps, w, h))
	}
	if sc.Grade != nil {
		parts = append(parts, gradeFilters(sc.Grade)...)
	}

	label := fmt.Sprintf("v%d", i)
	if sc.Vignette != nil {
		base, mask, mixed := fmt.Sprintf("v%dbase", i), fmt.Sprintf("v%dmask", i), fmt.Sprintf("v%dvig", i)
		b.chain([]string{fmt.Sprintf("%d:v", idx)}, parts, base)
		b.chain(nil, []string{vignetteSource(sc.Vignette, w, h, fps, d)}, mask)
		b.chain([]string{base, mask}, []string{"overlay=0:0:shortest=1"}, mixed)
		b.tail(mixed, sc, nil, label)
		return label
	}
	b.tail(fmt.Sprintf("%d:v", idx), sc, parts, label)
	return label
}

// tail adds grain, captions and the output format to a scene chain.
func (b *graphBuilder) tail(in string, sc *timeline.SceneComposite, parts []string, out string) {
	if sc.Grain != nil {
		parts = append(parts, fmt.Sprintf("noise=alls=%d:allf=t", grainStrength(sc.Grain)))
	}
	for _, layer := range sc.Texts {
		parts = append(parts, b.drawText(layer)...)
	}
	parts = append(parts, fmt.Sprintf("fps=%d", b.tl.FPS), "format=yuv420p")
	b.chain([]string{in}, parts, out)
}

func grainStrength(g *geometry.Grain) int {
	return int(math.Max(0, math.Min(100, math.Round(g.Strength()))))
}

// panZoomFilter animates the crop window with zoompan. The crop at the first
// frame is the initial window and at the last frame the final one.
func panZoomFilter(pz *geometry.PanZoom, fps, w, h int) string {
	frames := math.Max(1, math.Round(pz.Duration*float64(fps))-1)
	p := fmt.Sprintf("min(1,on/%s)", num(frames))
	lerp := func(a, b float64) string {
		return fmt.Sprintf("(%s+(%s)*%s)", num(a), num(b-a), p)
	}
	cw := lerp(pz.Initial.W, pz.Final.W)
	ch := lerp(pz.Initial.H, pz.Final.H)
	cx := lerp(pz.Initial.CX, pz.Final.CX)
	cy := lerp(pz.Initial.CY, pz.Final.CY)
	return fmt.Sprintf("zoompan=z='%s/%s':x='%s-%s/2':y='%s-%s/2':d=1:s=%dx%d:fps=%d",
		num(pz.Source.W), cw, cx, cw, cy, ch, w, h, fps)
}

func gradeFilters(g *geometry.ColorGradeConfig) []string {
	var out []string
	switch g.Filter {
	case geometry.FilterBW, geometry.FilterSepia:
		out = append(out, "hue=s=0")
	case geometry.FilterInvert:
		out = append(out, "negate")
	}
	out = append(out, fmt.Sprintf("eq=brightness=%s:contrast=%s:saturation=%s",
		num(g.Brightness), num(g.ContrastFactor()), num(g.Saturation)))
	for _, t := range g.Tints() {
		out = append(out, fmt.Sprintf("drawbox=x=0:y=0:w=iw:h=ih:color=%s@%s:t=fill", t.Color.Hex(), num(t.Opacity)))
	}
	return out
}

// vignetteSource is a full-frame layer of the vignette color whose alpha is
// the radial mask.
func vignetteSource(v *geometry.Vignette, w, h, fps int, d string) string {
	c := v.Color
	return fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s,format=rgba,"+
		"geq=r='%d':g='%d':b='%d':a='255*clip((hypot((X-W/2)/(W/2),(Y-H/2)/(H/2))-%s)/%s,0,1)'",
		c.Hex(), w, h, fps, d, c.R, c.G, c.B, num(v.Radius), num(v.Softness))
}

func (b *graphBuilder) textFile(text string) string {
	b.nTexts++
	path := filepath.Join(b.workDir, fmt.Sprintf("caption-%03d.txt", b.nTexts))
	b.files[path] = []byte(text)
	return path
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

type drawOpts struct {
	text     string
	color    model.Color
	fontSize string
	x, y     string
	from, to float64
	alpha    string
	extra    []string
}

func (b *graphBuilder) draw(o drawOpts) string {
	parts := []string{
		"drawtext=fontfile=" + quote(b.opts.FontFile),
		"textfile=" + quote(b.textFile(o.text)),
		"expansion=none",
		"fontsize=" + o.fontSize,
		"fontcolor=" + o.color.Hex(),
		"x=" + o.x,
		"y=" + o.y,
		fmt.Sprintf("enable='between(t,%s,%s)'", num(o.from), num(o.to)),
	}
	if len(o.alpha) > 0 {
		parts = append(parts, "alpha="+o.alpha)
	}
	parts = append(parts, o.extra...)
	return strings.Join(parts, ":")
}

func (b *graphBuilder) drawText(l *timeline.TextLayer) []string {
	var extra []string
	if l.StrokeColor != nil {
		extra = append(extra, fmt.Sprintf("borderw=%s", num(l.StrokeWidth)), "bordercolor="+l.StrokeColor.Hex())
	}
	if l.Box != nil {
		extra = append(extra, "box=1",
			fmt.Sprintf("boxcolor=%s@%s", l.Box.Color.Hex(), num(l.Box.Opacity)),
			fmt.Sprintf("boxborderw=%d", int(math.Round(l.Box.Padding))))
	}
	base := drawOpts{
		text:     l.Text,
		color:    l.Color,
		fontSize: num(l.FontSize),
		x:        num(l.X),
		y:        num(l.Y),
		from:     l.Start,
		to:       l.End,
		extra:    extra,
	}

	switch {
	case l.Karaoke != nil:
		k := l.Karaoke
		base.color = k.Normal
		out := []string{b.draw(base)}
		for _, w := range k.Words {
			from := math.Min(l.Start+w.Start, l.End)
			to := math.Min(l.Start+w.End, l.End)
			if to <= from {
				continue
			}
			out = append(out, b.draw(drawOpts{
				text: w.Word, color: k.Highlight, fontSize: num(k.FontSize),
				x: num(w.X), y: num(k.Y), from: from, to: to,
			}))
		}
		return out
	case l.Typewriter != nil:
		tw := l.Typewriter
		if tw.Placeholder {
			return nil
		}
		out := make([]string, 0, len(tw.Stages))
		for i, s := range tw.Stages {
			stage := base
			stage.text = s.Text
			stage.from = l.Start + s.Start
			stage.to = l.Start + s.Start + s.Duration
			if i == len(tw.Stages)-1 {
				stage.to = l.End
			}
			out = append(out, b.draw(stage))
		}
		return out
	case l.Popup != nil:
		a := num(l.Popup.AnimDuration)
		u := fmt.Sprintf("min(1,max(0,(t-%s)/%s))", num(l.Start), a)
		ease := fmt.Sprintf("(1+%s*pow(%s-1,3)+%s*pow(%s-1,2))", num(2.70158), u, num(1.70158), u)
		base.fontSize = fmt.Sprintf("'max(1,%s*%s)'", num(l.FontSize), ease)
		base.x = fmt.Sprintf("'%s-tw/2'", num(l.CX))
		base.y = fmt.Sprintf("'%s-th/2'", num(l.CY))
		return []string{b.draw(base)}
	case l.Fade != nil && l.Fade.FadeDuration > 0:
		f := num(l.Fade.FadeDuration)
		s, e := num(l.Start), num(l.End)
		base.alpha = fmt.Sprintf("'if(lt(t-%s,%s),(t-%s)/%s,if(gt(t,%s-%s),(%s-t)/%s,1))'", s, f, s, f, e, f, e, f)
		return []string{b.draw(base)}
	}
	return []string{b.draw(base)}
}

func (b *graphBuilder) sceneAudio(i int, sc *timeline.SceneComposite) string {
	label := fmt.Sprintf("a%d", i)
	d := num(sc.Duration)
	format := fmt.Sprintf("aformat=sample_rates=%d:channel_layouts=%s", SampleRate, ChannelLayout)
	var tracks []string
	for k, t := range sc.Audio.Tracks() {
		idx := b.input("-i", t.Source)
		parts := []string{format, fmt.Sprintf("atrim=duration=%s", num(t.Length)), "asetpts=PTS-STARTPTS", fmt.Sprintf("volume=%s", num(t.Gain))}
		if t.Offset > 0 {
			parts = append(parts, fmt.Sprintf("adelay=%d:all=1", int(math.Round(t.Offset*1000))))
		}
		tl := fmt.Sprintf("a%dt%d", i, k)
		b.chain([]string{fmt.Sprintf("%d:a", idx)}, parts, tl)
		tracks = append(tracks, tl)
	}

	pad := []string{fmt.Sprintf("apad=whole_dur=%s", d), fmt.Sprintf("atrim=duration=%s", d), "asetpts=PTS-STARTPTS"}
	switch len(tracks) {
	case 0:
		b.chain(nil, append([]string{fmt.Sprintf("anullsrc=r=%d:cl=%s", SampleRate, ChannelLayout)}, pad[1:]...), label)
	case 1:
		b.chain(tracks, pad, label)
	default:
		mix := fmt.Sprintf("amix=inputs=%d:normalize=0:duration=longest", len(tracks))
		b.chain(tracks, append([]string{mix}, pad...), label)
	}
	return label
}

func xfadeName(t *transition.Transition) string {
	if t.Type == model.TransitionFade {
		return "fade"
	}
	return "slide" + string(t.Direction)
}

// join chains the scenes through their transitions: xfade/acrossfade for
// overlapping joins, concat for cuts.
func (b *graphBuilder) join(videos, audios []string) (string, string) {
	v, a := videos[0], audios[0]
	length := b.tl.Scenes[0].Duration
	for i, j := range b.tl.Joins {
		if i+1 >= len(videos) {
			break
		}
		nv, na := fmt.Sprintf("j%dv", i), fmt.Sprintf("j%da", i)
		next := b.tl.Scenes[i+1].Duration
		if d := j.Overlap(); d > 0 {
			b.chain([]string{v, videos[i+1]}, []string{fmt.Sprintf("xfade=transition=%s:duration=%s:offset=%s", xfadeName(j), num(d), num(length-d))}, nv)
			b.chain([]string{a, audios[i+1]}, []string{fmt.Sprintf("acrossfade=d=%s:c1=tri:c2=tri", num(d))}, na)
		} else {
			b.chain([]string{v, videos[i+1]}, []string{"concat=n=2:v=1:a=0"}, nv)
			b.chain([]string{a, audios[i+1]}, []string{"concat=n=2:v=0:a=1"}, na)
		}
		length = j.Length(length, next)
		v, a = nv, na
	}
	return v, a
}

// music lays the background bed under the joined soundtrack.
func (b *graphBuilder) music(a string) string {
	m := b.tl.Music
	if m == nil {
		return a
	}
	idx := b.input("-stream_loop", strconv.Itoa(m.Loops-1), "-i", m.Source)
	b.chain([]string{fmt.Sprintf("%d:a", idx)}, []string{
		fmt.Sprintf("aformat=sample_rates=%d:channel_layouts=%s", SampleRate, ChannelLayout),
		fmt.Sprintf("atrim=duration=%s", num(m.Total)),
		"asetpts=PTS-STARTPTS",
		fmt.Sprintf("volume=%s", num(m.Gain)),
	}, "music")
	b.chain([]string{a, "music"}, []string{"amix=inputs=2:normalize=0:duration=first"}, "mixed")
	return "mixed"
}
