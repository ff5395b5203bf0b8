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
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
)

// Probe is what the composer needs to know about a media file.
type Probe struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Size returns the frame size of the first video stream.
func (p *Probe) Size() geometry.Size {
	return geometry.Size{W: float64(p.Width), H: float64(p.Height)}
}

// Prober reads media properties with ffprobe.
type Prober struct {
	runner Runner
	path   string
}

// NewProber uses ffprobe from PATH when ffprobePath is empty.
func NewProber(runner Runner, ffprobePath string) *Prober {
	if len(ffprobePath) == 0 {
		ffprobePath = "ffprobe"
	}
	return &Prober{runner: runner, path: ffprobePath}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the duration and stream layout of file.
func (p *Prober) Probe(ctx context.Context, file string) (*Probe, error) {
	out, err := p.runner.Run(ctx, p.path,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height,duration",
		"-of", "json",
		file)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", file, err)
	}
	return ParseProbe(out)
}

// ParseProbe decodes ffprobe's JSON output. Still images report no duration.
func ParseProbe(data []byte) (*Probe, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	res := &Probe{}
	if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
		res.Duration = d
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if !res.HasVideo {
				res.HasVideo = true
				res.Width, res.Height = s.Width, s.Height
			}
		case "audio":
			res.HasAudio = true
			if res.Duration == 0 {
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
					res.Duration = d
				}
			}
		}
	}
	if !res.HasVideo && !res.HasAudio {
		return nil, fmt.Errorf("no audio or video streams")
	}
	return res, nil
}
