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

package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/services"
)

type inlineDispatcher struct{ busy bool }

func (d inlineDispatcher) Submit(task func()) error {
	if d.busy {
		return jobs.ErrBusy
	}
	task()
	return nil
}

type recordingRunner struct {
	tracker *jobs.Tracker
	ids     []string
	ctxErr  error
}

func (r *recordingRunner) Run(ctx context.Context, id string, _ *model.RenderRequest) error {
	r.ids = append(r.ids, id)
	r.ctxErr = ctx.Err()
	for _, s := range []model.JobStatus{model.JobStatusPendingBrain, model.JobStatusPendingRender, model.JobStatusProcessing} {
		if err := r.tracker.Advance(ctx, id, s); err != nil {
			return err
		}
	}
	return r.tracker.Complete(ctx, id, "https://storage.googleapis.com/out/"+id+".mp4")
}

func validRequest() *model.RenderRequest {
	return &model.RenderRequest{
		Style: "documental",
		Scenes: []*model.SceneDescriptor{
			{ID: "a", MediaURL: "gs://a/1.png", AudioURL: "gs://a/1.mp3"},
			{ID: "b", ImageURL: "gs://a/2.png", Duration: 4, Script: "hola"},
		},
	}
}

func newService(busy bool) (*services.RenderService, *recordingRunner) {
	tracker := jobs.NewTracker(jobs.NewMemoryStore(), nil, 10)
	runner := &recordingRunner{tracker: tracker}
	return services.NewRenderService(tracker, inlineDispatcher{busy: busy}, runner), runner
}

func TestSubmitRunsJob(t *testing.T) {
	svc, runner := newService(false)
	ctx, cancel := context.WithCancel(context.Background())
	job, err := svc.Submit(ctx, validRequest())
	cancel()
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, []string{job.ID}, runner.ids)
	assert.NoError(t, runner.ctxErr)

	got, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	svc, runner := newService(false)
	cases := map[string]*model.RenderRequest{
		"nil":            nil,
		"no scenes":      {Style: "documental"},
		"no mode":        {Scenes: validRequest().Scenes},
		"no media":       {Style: "documental", Scenes: []*model.SceneDescriptor{{ID: "a", AudioURL: "gs://a/1.mp3"}}},
		"no length":      {Style: "documental", Scenes: []*model.SceneDescriptor{{ID: "a", MediaURL: "gs://a/1.png"}}},
		"bad media":      {Style: "documental", Scenes: []*model.SceneDescriptor{{ID: "a", MediaURL: "gs://a/1.png", AudioURL: "x", MediaType: "gif"}}},
		"bad volume":     {Config: &model.RenderConfig{NarrationVolume: ptr(-1.0)}, Scenes: validRequest().Scenes},
		"bad transition": {Config: &model.RenderConfig{TransitionType: "wipe"}, Scenes: validRequest().Scenes},
	}
	for name, req := range cases {
		_, err := svc.Submit(context.Background(), req)
		assert.ErrorIs(t, err, services.ErrInvalidRequest, name)
	}
	assert.Empty(t, runner.ids)
}

func ptr[T any](v T) *T { return &v }

func TestSubmitWhenBusyFailsJob(t *testing.T) {
	svc, runner := newService(true)
	job, err := svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, jobs.ErrBusy)
	require.NotNil(t, job)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Empty(t, runner.ids)
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newService(false)
	_, err := svc.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestJobRecordAndLimits(t *testing.T) {
	created := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	rec := services.NewJobRecord(&model.Job{
		ID: "j1", Status: model.JobStatusCompleted, Style: "cinematico", Scenes: 3,
		VideoURL: "https://v", CreatedAt: created, UpdatedAt: created.Add(time.Minute),
	})
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, created.Add(time.Minute), rec.FinishedAt)

	assert.Equal(t, services.DefaultHistoryLimit, services.ClampLimit(0))
	assert.Equal(t, 10, services.ClampLimit(10))
	assert.Equal(t, services.MaxHistoryLimit, services.ClampLimit(10_000))

	var disabled *services.HistoryService
	assert.False(t, disabled.Enabled())
	out, err := (&services.HistoryService{}).List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}
