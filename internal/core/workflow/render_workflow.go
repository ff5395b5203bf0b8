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

// Package workflow assembles the render chain and runs it for one job.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/encoder"
	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
	"github.com/jaycherian/gcp-go-media-render/internal/core/textfx"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// ErrNoVideo is returned when every step ran but nothing was delivered.
var ErrNoVideo = errors.New("render produced no video")

// RenderCollaborators are the external systems the render chain talks to.
type RenderCollaborators struct {
	Model    cloud.GenerativeModel // nil disables style requests
	Catalog  commands.ObjectReader
	Fetcher  commands.Fetcher
	Prober   commands.Prober
	Encoder  commands.TimelineEncoder
	Uploader commands.Uploader
	Measurer textfx.Measurer // nil uses the embedded font
}

// RenderWorkflow turns a render request into a delivered video, moving the
// job through pending_brain, pending_render and processing on the way.
type RenderWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	tracker *jobs.Tracker
	chain   cor.Chain
}

// Execute runs the render chain on an existing context.
func (w *RenderWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Chain exposes the underlying chain.
func (w *RenderWorkflow) Chain() cor.Chain {
	return w.chain
}

// NewRenderWorkflow builds the render chain.
//
// Inputs:
//   - config: Render, storage and prompt settings.
//   - tracker: Receives every phase change and progress report.
//   - c: The collaborators that touch the outside world.
//
// Outputs:
//   - *RenderWorkflow: The workflow.
//   - error: The recipe prompt template does not parse.
func NewRenderWorkflow(config *cloud.Config, tracker *jobs.Tracker, c RenderCollaborators) (*RenderWorkflow, error) {
	source := config.PromptTemplates.RecipePrompt
	if len(source) == 0 {
		source = commands.DefaultRecipePrompt
	}
	recipeTemplate, err := template.New("recipe-template").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("recipe prompt template: %w", err)
	}

	w := &RenderWorkflow{
		BaseCommand: *cor.NewBaseCommand("render-workflow"),
		config:      config,
		tracker:     tracker,
	}

	fps := config.Render.FPS
	if fps <= 0 {
		fps = timeline.DefaultFPS
	}
	assembler := timeline.NewAssembler(slog.Default(), c.Measurer, config.Render.SceneMarginSeconds, fps)
	inspector := commands.NewMediaInspector(c.Prober)
	signedFor := time.Duration(config.Storage.SignedURLMinutes) * time.Minute

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewJobPhase("job-pending-brain", tracker, model.JobStatusPendingBrain))
	out.AddCommand(commands.NewSoundEffectCatalogReader("read-sfx-catalog", c.Catalog, config.Storage.AssetBucket, config.Storage.SoundEffectsObject))
	out.AddCommand(commands.NewRecipeCreator("create-recipe", config, c.Model, recipeTemplate))
	out.AddCommand(commands.NewRecipeParser("parse-recipe"))
	out.AddCommand(commands.NewJobPhase("job-pending-render", tracker, model.JobStatusPendingRender))
	out.AddCommand(commands.NewRecipeResolver("resolve-recipe", recipe.NewInterpreter(slog.Default())))
	out.AddCommand(commands.NewJobPhase("job-processing", tracker, model.JobStatusProcessing))
	out.AddCommand(commands.NewSceneComposer("compose-scenes", c.Fetcher, inspector, assembler, tracker))
	out.AddCommand(commands.NewTimelineAssembler("assemble-timeline", c.Fetcher, inspector, assembler))
	out.AddCommand(commands.NewFinalizationMarker("job-finalizing", tracker))
	out.AddCommand(commands.NewVideoEncoder("encode-video", c.Encoder))
	out.AddCommand(commands.NewVideoUpload("upload-video", c.Uploader, config.Storage.OutputBucket, config.Storage.OutputPrefix, signedFor))
	w.chain = out
	return w, nil
}

// NewRenderPipeline wires the workflow to the live cloud clients, ffmpeg and
// ffprobe.
func NewRenderPipeline(config *cloud.Config, serviceClients *cloud.ServiceClients, tracker *jobs.Tracker) (*RenderWorkflow, error) {
	objects := &cloud.ObjectStore{
		Client:      serviceClients.StorageClient,
		IAM:         serviceClients.IAMClient,
		SignerEmail: config.Application.SignerServiceAccountEmail,
	}
	runner := encoder.ExecRunner{Logger: slog.Default()}
	var agent cloud.GenerativeModel
	if m, ok := serviceClients.AgentModels[config.Render.RecipeModel]; ok {
		agent = m
	} else {
		slog.Warn("recipe model not configured, style requests will fail", "model", config.Render.RecipeModel)
	}
	var measurer textfx.Measurer
	if len(config.Render.FontFile) > 0 {
		ttf, err := os.ReadFile(config.Render.FontFile)
		if err != nil {
			return nil, fmt.Errorf("font file: %w", err)
		}
		fm, err := textfx.NewFontMeasurer(ttf)
		if err != nil {
			return nil, fmt.Errorf("font file: %w", err)
		}
		measurer = fm
	}
	fetcher := commands.NewAssetFetcher(objects, http.DefaultClient,
		time.Duration(config.Render.DownloadTimeoutSeconds)*time.Second)
	enc := encoder.NewEncoder(runner, config.Render.FFmpegPath, encoder.Options{
		FontFile:   config.Render.FontFile,
		VideoCodec: config.Render.VideoCodec,
		AudioCodec: config.Render.AudioCodec,
	}, slog.Default())

	return NewRenderWorkflow(config, tracker, RenderCollaborators{
		Model:    agent,
		Catalog:  objects,
		Fetcher:  fetcher,
		Prober:   encoder.NewProber(runner, config.Render.FFprobePath),
		Encoder:  enc,
		Uploader: objects,
		Measurer: measurer,
	})
}

// Run renders one job to completion or failure. It never returns before the
// job is terminal, and the job's work directory is removed on every path.
func (w *RenderWorkflow) Run(ctx context.Context, id string, req *model.RenderRequest) (err error) {
	log := slog.Default().With("job_id", id)
	start := time.Now()

	chainCtx := cor.NewContext(ctx)
	defer chainCtx.Close()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
			log.ErrorContext(ctx, "render panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			log.ErrorContext(ctx, "render failed", "error", err, "elapsed", time.Since(start))
			if fErr := w.tracker.Fail(ctx, id, err); fErr != nil {
				log.WarnContext(ctx, "could not record job failure", "error", fErr)
			}
		}
	}()

	dir, err := os.MkdirTemp(w.config.Render.WorkDir, "render-"+id+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	chainCtx.AddTempFile(dir)
	chainCtx.Add(commands.ParamJobID, id).
		Add(commands.ParamRequest, req).
		Add(commands.ParamWorkDir, dir)

	w.Execute(chainCtx)
	if err = chainCtx.Err(); err != nil {
		return err
	}
	url, _ := chainCtx.Get(commands.ParamVideoURL).(string)
	if len(url) == 0 {
		return ErrNoVideo
	}
	if err = w.tracker.Complete(ctx, id, url); err != nil {
		return err
	}
	log.InfoContext(ctx, "render completed", "video_url", url, "elapsed", time.Since(start))
	return nil
}
