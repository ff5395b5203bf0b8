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
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// TimelineAssembler joins the scene composites and plans background music.
type TimelineAssembler struct {
	cor.BaseCommand
	fetcher   Fetcher
	inspector *MediaInspector
	assembler *timeline.Assembler
}

// NewTimelineAssembler creates the command that joins the composites into a Timeline.
func NewTimelineAssembler(name string, fetcher Fetcher, inspector *MediaInspector, assembler *timeline.Assembler) *TimelineAssembler {
	out := &TimelineAssembler{
		BaseCommand: *cor.NewBaseCommand(name),
		fetcher:     fetcher,
		inspector:   inspector,
		assembler:   assembler,
	}
	out.InputParamName = ParamComposites
	out.OutputParamName = ParamTimeline
	return out
}

// IsExecutable requires the scene composites, the request and a work
// directory.
func (a *TimelineAssembler) IsExecutable(context cor.Context) bool {
	return a.BaseCommand.IsExecutable(context) &&
		context.Get(ParamRequest) != nil &&
		context.Get(ParamWorkDir) != nil
}

// Execute fetches the background music, if any, and assembles the timeline.
func (a *TimelineAssembler) Execute(context cor.Context) {
	ctx := context.GetContext()
	scenes := context.Get(a.GetInputParam()).([]*timeline.SceneComposite)
	req := context.Get(ParamRequest).(*model.RenderRequest)
	dir := context.Get(ParamWorkDir).(string)

	var music *timeline.Source
	if req.Config != nil && len(req.Config.MusicURL) > 0 {
		path, _, err := a.fetcher.Fetch(ctx, req.Config.MusicURL, dir, "music", AssetAudio)
		if err != nil {
			a.Fail(context, fmt.Errorf("background music: %w", err))
			return
		}
		if music, err = a.inspector.Audio(ctx, path); err != nil {
			a.Fail(context, fmt.Errorf("background music: %w", err))
			return
		}
	}

	tl, err := a.assembler.Assemble(scenes, music, req.Config)
	if err != nil {
		a.Fail(context, err)
		return
	}
	slog.InfoContext(ctx, "timeline assembled",
		"job_id", jobID(context),
		"scenes", len(tl.Scenes),
		"duration", tl.Duration,
		"music", music != nil)
	a.Succeed(context)
	context.Add(a.GetOutputParam(), tl)
}
