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

package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/encoder"
	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/timeline"
	"github.com/jaycherian/gcp-go-media-render/internal/core/workflow"
)

const tName = "cloud.google.com/media/tests/workflow"

var logger = otelslog.NewLogger(tName)

type stubFetcher struct {
	failURL string
}

func (f stubFetcher) Fetch(_ context.Context, url string, dir, stem string, want commands.AssetKind) (string, types.Type, error) {
	if len(f.failURL) > 0 && url == f.failURL {
		return "", filetype.Unknown, errors.New("download " + url + ": 404 Not Found")
	}
	if want == commands.AssetVisual {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 180))); err != nil {
			return "", filetype.Unknown, err
		}
		path := filepath.Join(dir, stem+".png")
		return path, filetype.GetType("png"), os.WriteFile(path, buf.Bytes(), 0o600)
	}
	path := filepath.Join(dir, stem+".mp3")
	return path, filetype.GetType("mp3"), os.WriteFile(path, []byte("ID3"), 0o600)
}

type stubProber struct{}

func (stubProber) Probe(_ context.Context, _ string) (*encoder.Probe, error) {
	return &encoder.Probe{Duration: 3, HasAudio: true}, nil
}

type stubEncoder struct {
	mu      sync.Mutex
	workDir string
	tl      *timeline.Timeline
	err     error
	panics  bool
}

func (e *stubEncoder) Encode(_ context.Context, tl *timeline.Timeline, workDir, output string) error {
	if e.panics {
		panic("filter graph exploded")
	}
	e.mu.Lock()
	e.workDir, e.tl = workDir, tl
	e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(output, []byte("mp4"), 0o600)
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, _ string, _ *cloud.GCSObject) error { return nil }

func (stubUploader) Sign(_ context.Context, obj *cloud.GCSObject, _ time.Duration) (string, error) {
	return "https://signed/" + obj.Name, nil
}

type stubModel struct {
	reply string
}

func (m stubModel) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: m.reply}}}}},
	}, nil
}

func setup(t *testing.T, enc *stubEncoder, reply string) (*workflow.RenderWorkflow, *jobs.Tracker) {
	w, tracker, _ := setupWithFetcher(t, enc, reply, stubFetcher{})
	return w, tracker
}

func setupWithFetcher(t *testing.T, enc *stubEncoder, reply string, fetcher commands.Fetcher) (*workflow.RenderWorkflow, *jobs.Tracker, string) {
	root := t.TempDir()
	config := cloud.NewConfig()
	config.Storage.OutputBucket = "out"
	config.Render.WorkDir = root
	config.Styles["documental"] = cloud.Style{Name: "Documental", Definition: "calm"}

	tracker := jobs.NewTracker(jobs.NewMemoryStore(), logger, 10)
	w, err := workflow.NewRenderWorkflow(config, tracker, workflow.RenderCollaborators{
		Model:    stubModel{reply: reply},
		Fetcher:  fetcher,
		Prober:   stubProber{},
		Encoder:  enc,
		Uploader: stubUploader{},
	})
	require.NoError(t, err)
	return w, tracker, root
}

func configRequest() *model.RenderRequest {
	return &model.RenderRequest{
		Config: &model.RenderConfig{TransitionType: model.TransitionFade, TransitionDuration: 0.5},
		Scenes: []*model.SceneDescriptor{
			{ID: "a", MediaURL: "https://x/a.png", AudioURL: "https://x/a.mp3"},
			{ID: "b", MediaURL: "https://x/b.png", AudioURL: "https://x/b.mp3"},
		},
	}
}

func run(t *testing.T, w *workflow.RenderWorkflow, tracker *jobs.Tracker, req *model.RenderRequest) (*model.Job, error) {
	ctx := context.Background()
	job, err := tracker.Create(ctx, req)
	require.NoError(t, err)
	runErr := w.Run(ctx, job.ID, req)
	job, err = tracker.Get(ctx, job.ID)
	require.NoError(t, err)
	return job, runErr
}

func TestRenderWorkflowCompletes(t *testing.T) {
	enc := &stubEncoder{}
	w, tracker := setup(t, enc, "")

	job, err := run(t, w, tracker, configRequest())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 100.0, job.Progress)
	assert.Equal(t, "https://storage.googleapis.com/out/renders/"+job.ID+".mp4", job.VideoURL)
	assert.Empty(t, job.Error)

	require.NotNil(t, enc.tl)
	assert.Equal(t, 6.5, enc.tl.Duration)
	_, statErr := os.Stat(enc.workDir)
	assert.True(t, os.IsNotExist(statErr), "work dir is removed")
}

func TestRenderWorkflowUsesModelRecipe(t *testing.T) {
	enc := &stubEncoder{}
	reply := "```json\n" + `{"scenes":[{"scene_id":"a","visual_effects":[{"type":"vignette","params":{}}],"transition_to_next":{"type":"none","duration":0}},{"scene_id":"b"}]}` + "\n```"
	w, tracker := setup(t, enc, reply)

	req := configRequest()
	req.Style = "documental"
	job, err := run(t, w, tracker, req)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.NotNil(t, enc.tl.Scenes[0].Vignette)
	assert.Equal(t, 7.0, enc.tl.Duration)
}

func TestRenderWorkflowMalformedRecipeFails(t *testing.T) {
	enc := &stubEncoder{}
	w, tracker := setup(t, enc, `{"shots": []}`)

	req := configRequest()
	req.Style = "documental"
	req.Config = nil
	job, err := run(t, w, tracker, req)
	require.Error(t, err)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "parse-recipe")
	assert.Nil(t, enc.tl)
}

func TestRenderWorkflowEncodeFailure(t *testing.T) {
	enc := &stubEncoder{err: errors.New("ffmpeg failed: exit status 1")}
	w, tracker := setup(t, enc, "")

	job, err := run(t, w, tracker, configRequest())
	require.Error(t, err)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "exit status 1")
	assert.Equal(t, 90.0, job.Progress)
	_, statErr := os.Stat(enc.workDir)
	assert.True(t, os.IsNotExist(statErr), "work dir is removed on failure")
}

func TestRenderWorkflowAssetFailureStopsBeforeEncode(t *testing.T) {
	enc := &stubEncoder{}
	w, tracker, root := setupWithFetcher(t, enc, "", stubFetcher{failURL: "https://x/b.png"})

	job, err := run(t, w, tracker, configRequest())
	require.Error(t, err)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "404 Not Found")
	assert.Empty(t, job.VideoURL)
	assert.Nil(t, enc.tl, "no timeline reaches the encoder")

	left, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Empty(t, left, "job work dir is removed")
}

func TestRenderWorkflowRecoversPanics(t *testing.T) {
	w, tracker := setup(t, &stubEncoder{panics: true}, "")

	job, err := run(t, w, tracker, configRequest())
	require.Error(t, err)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "filter graph exploded")
}

func TestRenderWorkflowPreFetchedRecipe(t *testing.T) {
	enc := &stubEncoder{}
	w, tracker := setup(t, enc, "")

	req := configRequest()
	req.Recipe = json.RawMessage(`{"scenes":[{"scene_id":"b","visual_effects":[{"type":"texture_overlay","params":{"intensity":0.3}}]}]}`)
	job, err := run(t, w, tracker, req)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.NotNil(t, enc.tl.Scenes[1].Grain)
	assert.Equal(t, []string{"job-pending-brain", "read-sfx-catalog", "create-recipe", "parse-recipe",
		"job-pending-render", "resolve-recipe", "job-processing", "compose-scenes", "assemble-timeline",
		"job-finalizing", "encode-video", "upload-video"}, commandNames(w))
}

func commandNames(w *workflow.RenderWorkflow) []string {
	chain := w.Chain().(interface{ Commands() []cor.Command })
	out := []string{}
	for _, c := range chain.Commands() {
		out = append(out, c.GetName())
	}
	return out
}
