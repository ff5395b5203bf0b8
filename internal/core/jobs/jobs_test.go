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

package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(n int) *model.RenderRequest {
	req := &model.RenderRequest{Style: "documental"}
	for i := 0; i < n; i++ {
		req.Scenes = append(req.Scenes, &model.SceneDescriptor{ID: fmt.Sprintf("s%d", i), MediaURL: "gs://b/m", AudioURL: "gs://b/a"})
	}
	return req
}

// exerciseStore checks the Store contract against any backend.
func exerciseStore(t *testing.T, store jobs.Store) {
	ctx := context.Background()
	job := &model.Job{ID: fmt.Sprintf("job-%d", time.Now().UnixNano()), Status: model.JobStatusQueued}
	require.NoError(t, store.Create(ctx, job))
	assert.ErrorIs(t, store.Create(ctx, job), jobs.ErrJobExists)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)

	got.Status = model.JobStatusError
	again, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, again.Status, "returned records must be copies")

	updated, err := store.Update(ctx, job.ID, func(j *model.Job) error {
		j.Progress = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, updated.Progress)

	_, err = store.Update(ctx, job.ID, func(j *model.Job) error {
		j.Progress = 99
		return errors.New("nope")
	})
	assert.Error(t, err)
	again, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, again.Progress)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	_, err = store.Update(ctx, "missing", func(*model.Job) error { return nil })
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, jobs.NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	exerciseStore(t, jobs.NewRedisStore(client, "render:test:", time.Minute))
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	store := jobs.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Job{ID: "j"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "j", func(j *model.Job) error {
				j.Progress++
				return nil
			})
			_, _ = store.Get(ctx, "j")
		}()
	}
	wg.Wait()
	got, err := store.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Progress)
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tracker := jobs.NewTracker(jobs.NewMemoryStore(), nil, 10)
	var finished []*model.Job
	tracker.OnTerminal(func(_ context.Context, j *model.Job) { finished = append(finished, j) })

	job, err := tracker.Create(ctx, request(4))
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, 4, job.Scenes)

	// No skipping.
	assert.ErrorIs(t, tracker.Advance(ctx, job.ID, model.JobStatusProcessing), jobs.ErrInvalidTransition)

	require.NoError(t, tracker.Advance(ctx, job.ID, model.JobStatusPendingBrain))
	require.NoError(t, tracker.Advance(ctx, job.ID, model.JobStatusPendingRender))
	// No going back.
	assert.ErrorIs(t, tracker.Advance(ctx, job.ID, model.JobStatusPendingBrain), jobs.ErrInvalidTransition)
	require.NoError(t, tracker.Advance(ctx, job.ID, model.JobStatusProcessing))

	last := 0.0
	for done := 1; done <= 4; done++ {
		require.NoError(t, tracker.ReportProgress(ctx, job.ID, done, 4))
		got, err := tracker.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Progress, last)
		assert.Equal(t, fmt.Sprintf("%d/4", done), got.Phase)
		last = got.Progress
	}
	assert.Equal(t, 90.0, last)

	require.NoError(t, tracker.ReportProgress(ctx, job.ID, 1, 4))
	got, _ := tracker.Get(ctx, job.ID)
	assert.Equal(t, 90.0, got.Progress, "progress never decreases")

	require.NoError(t, tracker.BeginFinalization(ctx, job.ID))
	require.NoError(t, tracker.Complete(ctx, job.ID, "https://example.com/v.mp4"))

	got, _ = tracker.Get(ctx, job.ID)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	assert.Equal(t, "https://example.com/v.mp4", got.VideoURL)
	require.Len(t, finished, 1)

	// Terminal: further changes are rejected or ignored.
	assert.ErrorIs(t, tracker.Advance(ctx, job.ID, model.JobStatusError), jobs.ErrJobTerminal)
	assert.ErrorIs(t, tracker.Complete(ctx, job.ID, "other"), jobs.ErrJobTerminal)
	assert.NoError(t, tracker.Fail(ctx, job.ID, errors.New("late")))
	assert.Error(t, tracker.ReportProgress(ctx, job.ID, 4, 4))

	after, _ := tracker.Get(ctx, job.ID)
	assert.Equal(t, got, after)
	assert.Len(t, finished, 1)
}

func TestTrackerFailFromAnyPhase(t *testing.T) {
	ctx := context.Background()
	phases := []model.JobStatus{model.JobStatusQueued, model.JobStatusPendingBrain, model.JobStatusPendingRender, model.JobStatusProcessing}
	for i := range phases {
		tracker := jobs.NewTracker(jobs.NewMemoryStore(), nil, 10)
		job, err := tracker.Create(ctx, request(1))
		require.NoError(t, err)
		for _, p := range phases[1 : i+1] {
			require.NoError(t, tracker.Advance(ctx, job.ID, p))
		}
		require.NoError(t, tracker.Fail(ctx, job.ID, errors.New("fetch failed")))
		got, err := tracker.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusError, got.Status)
		assert.Equal(t, "fetch failed", got.Error)
		assert.Empty(t, got.VideoURL)
	}
}

func TestTrackerCompleteRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	tracker := jobs.NewTracker(jobs.NewMemoryStore(), nil, 10)
	job, err := tracker.Create(ctx, request(1))
	require.NoError(t, err)
	assert.ErrorIs(t, tracker.Complete(ctx, job.ID, "x"), jobs.ErrInvalidTransition)
	assert.ErrorIs(t, tracker.BeginFinalization(ctx, job.ID), jobs.ErrInvalidTransition)
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d, err := jobs.NewDispatcher(1, 0, nil)
	require.NoError(t, err)
	defer func() { _ = d.Shutdown(time.Second) }()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := func() {
		close(started)
		<-release
	}
	// With no queue a task is accepted only once a worker is waiting for it.
	require.Eventually(t, func() bool { return d.Submit(blocker) == nil }, time.Second, 5*time.Millisecond)
	<-started

	err = d.Submit(func() {})
	assert.ErrorIs(t, err, jobs.ErrBusy)
	close(release)

	done := make(chan struct{})
	assert.Eventually(t, func() bool { return d.Submit(func() { close(done) }) == nil }, time.Second, 10*time.Millisecond)
	<-done
}

func TestDispatcherQueuesWithoutBlocking(t *testing.T) {
	d, err := jobs.NewDispatcher(1, 1, nil)
	require.NoError(t, err)
	defer func() { _ = d.Shutdown(time.Second) }()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	ran := make(chan struct{})
	begin := time.Now()
	require.NoError(t, d.Submit(func() { close(ran) }))
	assert.Less(t, time.Since(begin), 50*time.Millisecond)
	assert.Equal(t, 1, d.Queued())
	assert.Equal(t, 1, d.Running())

	begin = time.Now()
	err = d.Submit(func() {})
	assert.ErrorIs(t, err, jobs.ErrBusy)
	assert.Less(t, time.Since(begin), 50*time.Millisecond)

	close(release)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran")
	}
}

func TestDispatcherRejectsAfterShutdown(t *testing.T) {
	d, err := jobs.NewDispatcher(1, 1, nil)
	require.NoError(t, err)
	require.NoError(t, d.Shutdown(time.Second))
	assert.ErrorIs(t, d.Submit(func() {}), jobs.ErrBusy)
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	d, err := jobs.NewDispatcher(2, 0, nil)
	require.NoError(t, err)
	defer func() { _ = d.Shutdown(time.Second) }()

	require.Eventually(t, func() bool { return d.Submit(func() { panic("boom") }) == nil }, time.Second, 5*time.Millisecond)
	done := make(chan struct{})
	assert.Eventually(t, func() bool { return d.Submit(func() { close(done) }) == nil }, time.Second, 10*time.Millisecond)
	<-done
	assert.Equal(t, 2, d.Cap())
}
