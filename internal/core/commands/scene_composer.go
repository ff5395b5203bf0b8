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
	"sync"

	"github.com/h2non/filetype/types"
	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
)

// Fetcher downloads one asset into a local directory.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir, stem string, want AssetKind) (string, types.Type, error)
}

// SceneComposer downloads and lays out every scene in order. Within one scene
// the media, narration and sound effects download concurrently; scenes run
// one after another and the first failure stops the job.
type SceneComposer struct {
	cor.BaseCommand
	fetcher   Fetcher
	inspector *MediaInspector
	assembler *timeline.Assembler
	tracker   JobTracker
}

// NewSceneComposer creates the command that turns resolved scenes into scene
// composites.
//
// Inputs:
//   - name: The command name.
//   - fetcher: Downloads scene media, narration and sound effects.
//   - inspector: Measures the downloaded files.
//   - assembler: Lays out each scene.
//   - tracker: Receives per-scene progress.
//
// Outputs:
//   - *SceneComposer: The command.
func NewSceneComposer(name string, fetcher Fetcher, inspector *MediaInspector, assembler *timeline.Assembler, tracker JobTracker) *SceneComposer {
	out := &SceneComposer{
		BaseCommand: *cor.NewBaseCommand(name),
		fetcher:     fetcher,
		inspector:   inspector,
		assembler:   assembler,
		tracker:     tracker,
	}
	out.InputParamName = ParamResolved
	out.OutputParamName = ParamComposites
	return out
}

// IsExecutable requires the resolved scenes, the request and a work
// directory.
func (c *SceneComposer) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(ParamRequest) != nil &&
		context.Get(ParamWorkDir) != nil
}

// Execute composes the scenes strictly in order. The first failing scene
// fails the chain; nothing composed so far is kept.
func (c *SceneComposer) Execute(context cor.Context) {
	ctx := context.GetContext()
	resolved := context.Get(c.GetInputParam()).([]*recipe.ResolvedScene)
	req := context.Get(ParamRequest).(*model.RenderRequest)
	dir := context.Get(ParamWorkDir).(string)
	catalog, _ := context.Get(ParamCatalog).(*model.SoundEffectCatalog)
	id := jobID(context)

	composites := make([]*timeline.SceneComposite, 0, len(resolved))
	for i, rs := range resolved {
		log := slog.Default().With("job_id", id, "scene_index", rs.Index, "scene_id", rs.Scene.ID)
		assets, err := c.fetchScene(ctx, log, rs, dir, catalog)
		if err != nil {
			log.ErrorContext(ctx, "scene assets failed", "error", err)
			c.Fail(context, fmt.Errorf("scene %d (%s): %w", rs.Index, rs.Scene.ID, err))
			return
		}
		sc, err := c.assembler.ComposeScene(rs, assets, req.Config)
		if err != nil {
			log.ErrorContext(ctx, "scene composition failed", "error", err)
			c.Fail(context, fmt.Errorf("scene %d (%s): %w", rs.Index, rs.Scene.ID, err))
			return
		}
		composites = append(composites, sc)
		log.InfoContext(ctx, "scene composed", "duration", sc.Duration, "texts", len(sc.Texts))

		if len(id) > 0 && c.tracker != nil {
			if err := c.tracker.ReportProgress(ctx, id, i+1, len(resolved)); err != nil {
				c.Fail(context, err)
				return
			}
		}
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), composites)
}

func (c *SceneComposer) fetchScene(ctx context.Context, log *slog.Logger, rs *recipe.ResolvedScene, dir string, catalog *model.SoundEffectCatalog) (*timeline.SceneAssets, error) {
	assets := &timeline.SceneAssets{SoundEffects: make(map[string]string)}
	prefix := fmt.Sprintf("scene-%03d", rs.Index)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		path, kind, err := c.fetcher.Fetch(gctx, rs.Scene.SourceURL(), dir, prefix+"-media", AssetVisual)
		if err != nil {
			return err
		}
		mediaType := model.MediaTypeImage
		if kind.MIME.Type == "video" {
			mediaType = model.MediaTypeVideo
		}
		if len(rs.Scene.MediaType) > 0 && rs.Scene.MediaType != mediaType {
			log.WarnContext(gctx, "declared media type differs from content", "declared", rs.Scene.MediaType, "detected", mediaType)
		}
		src, err := c.inspector.Visual(gctx, path, mediaType)
		if err != nil {
			return err
		}
		assets.Media = src
		return nil
	})

	if rs.Scene.HasNarration() {
		g.Go(func() error {
			path, _, err := c.fetcher.Fetch(gctx, rs.Scene.AudioURL, dir, prefix+"-narration", AssetAudio)
			if err != nil {
				return err
			}
			src, err := c.inspector.Audio(gctx, path)
			if err != nil {
				return err
			}
			assets.Narration = src
			return nil
		})
	}

	seen := make(map[string]bool)
	for _, s := range rs.Sounds {
		if seen[s.SfxID] {
			continue
		}
		seen[s.SfxID] = true
		effect, ok := catalog.Lookup(s.SfxID)
		if !ok {
			continue
		}
		stem := fmt.Sprintf("%s-sfx-%d", prefix, len(seen))
		g.Go(func() error {
			path, _, err := c.fetcher.Fetch(gctx, effect.URL, dir, stem, AssetAudio)
			if err != nil {
				return fmt.Errorf("sound effect %s: %w", effect.ID, err)
			}
			mu.Lock()
			assets.SoundEffects[effect.ID] = path
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}
