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

package commands

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jaycherian/gcp-go-media-render/internal/core/encoder"
	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// Prober reads stream properties of a local media file.
type Prober interface {
	Probe(ctx context.Context, file string) (*encoder.Probe, error)
}

// MediaInspector turns downloaded files into timeline sources. Image headers
// are decoded in process; anything else goes to ffprobe.
type MediaInspector struct {
	prober Prober
}

// NewMediaInspector uses prober for anything that is not a decodable still image.
func NewMediaInspector(prober Prober) *MediaInspector {
	return &MediaInspector{prober: prober}
}

// Visual returns the frame size of an image or video and, for videos, the
// duration. Images are measured from their header when possible.
func (m *MediaInspector) Visual(ctx context.Context, path string, kind model.MediaType) (timeline.Source, error) {
	src := timeline.Source{Path: path, Kind: kind}
	if kind == model.MediaTypeImage {
		if size, err := imageSize(path); err == nil {
			src.Size = size
			return src, nil
		}
	}
	p, err := m.prober.Probe(ctx, path)
	if err != nil {
		return src, err
	}
	if !p.HasVideo || p.Width <= 0 || p.Height <= 0 {
		return src, fmt.Errorf("%s has no picture", path)
	}
	src.Size = p.Size()
	if kind == model.MediaTypeVideo {
		if p.Duration <= 0 {
			return src, fmt.Errorf("%s has no duration", path)
		}
		src.Duration = p.Duration
	}
	return src, nil
}

// Audio returns an audio source with its probed duration.
func (m *MediaInspector) Audio(ctx context.Context, path string) (*timeline.Source, error) {
	p, err := m.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if !p.HasAudio || p.Duration <= 0 {
		return nil, fmt.Errorf("%s has no audible duration", path)
	}
	return &timeline.Source{Path: path, Duration: p.Duration}, nil
}

func imageSize(path string) (geometry.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Size{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.Size{}, err
	}
	return geometry.Size{W: float64(cfg.Width), H: float64(cfg.Height)}, nil
}
