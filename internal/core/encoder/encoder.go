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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-media-render/internal/core/textfx"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// Encoder renders timelines with ffmpeg.
type Encoder struct {
	runner Runner
	ffmpeg string
	opts   Options
	logger *slog.Logger
}

// NewEncoder creates an encoder. An empty ffmpegPath uses ffmpeg from PATH and
// a nil logger uses slog.Default().
func NewEncoder(runner Runner, ffmpegPath string, opts Options, logger *slog.Logger) *Encoder {
	if len(ffmpegPath) == 0 {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{runner: runner, ffmpeg: ffmpegPath, opts: opts, logger: logger}
}

// Encode writes tl to output. Helper files go to workDir, which the caller
// owns and removes.
func (e *Encoder) Encode(ctx context.Context, tl *timeline.Timeline, workDir, output string) error {
	opts := e.opts
	files := map[string][]byte{}
	if len(opts.FontFile) == 0 {
		opts.FontFile = filepath.Join(workDir, "font.ttf")
		files[opts.FontFile] = textfx.DefaultFontTTF()
	}
	plan, err := BuildPlan(tl, workDir, output, opts)
	if err != nil {
		return err
	}
	for path, data := range files {
		plan.Files[path] = data
	}
	for path, data := range plan.Files {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	e.logger.InfoContext(ctx, "encoding timeline", "scenes", len(tl.Scenes), "duration", tl.Duration, "output", output)
	if _, err := e.runner.Run(ctx, e.ffmpeg, plan.Args...); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
