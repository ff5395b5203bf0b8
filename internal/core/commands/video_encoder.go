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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// TimelineEncoder renders a timeline to a video file.
type TimelineEncoder interface {
	Encode(ctx context.Context, tl *timeline.Timeline, workDir, output string) error
}

// VideoEncoder runs the final encode into the job's work directory.
type VideoEncoder struct {
	cor.BaseCommand
	encoder TimelineEncoder
}

// NewVideoEncoder creates the command that renders the timeline to an mp4.
func NewVideoEncoder(name string, encoder TimelineEncoder) *VideoEncoder {
	out := &VideoEncoder{BaseCommand: *cor.NewBaseCommand(name), encoder: encoder}
	out.InputParamName = ParamTimeline
	out.OutputParamName = ParamVideoFile
	return out
}

// IsExecutable requires a timeline and a work directory.
func (e *VideoEncoder) IsExecutable(context cor.Context) bool {
	return e.BaseCommand.IsExecutable(context) && context.Get(ParamWorkDir) != nil
}

// Execute writes <workDir>/<jobID>.mp4 and checks that the file exists.
func (e *VideoEncoder) Execute(context cor.Context) {
	tl := context.Get(e.GetInputParam()).(*timeline.Timeline)
	dir := context.Get(ParamWorkDir).(string)
	name := jobID(context)
	if len(name) == 0 {
		name = "render"
	}
	output := filepath.Join(dir, name+".mp4")

	if err := e.encoder.Encode(context.GetContext(), tl, dir, output); err != nil {
		e.Fail(context, err)
		return
	}
	info, err := os.Stat(output)
	if err != nil {
		e.Fail(context, fmt.Errorf("encoder produced no output: %w", err))
		return
	}
	slog.InfoContext(context.GetContext(), "video encoded", "job_id", jobID(context), "file", output, "bytes", info.Size())
	e.Succeed(context)
	context.Add(e.GetOutputParam(), output)
}
