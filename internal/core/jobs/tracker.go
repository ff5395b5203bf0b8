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

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// DefaultProgressTail is the share of progress held back for the final
// encode and upload.
const DefaultProgressTail = 10.0

// TerminalObserver is told about every job that reaches completed or error.
type TerminalObserver func(ctx context.Context, job *model.Job)

// Tracker owns every status, progress and result change of a job. Phases only
// move forward one step at a time, error is reachable from any non-terminal
// phase and a terminal job never changes again.
type Tracker struct {
	store     Store
	logger    *slog.Logger
	tail      float64
	now       func() time.Time
	observers []TerminalObserver
}

// NewTracker creates a tracker over store.
//
// Inputs:
//   - store: Where job records live.
//   - logger: Receives lifecycle events; nil uses slog.Default().
//   - tail: Percent of progress reserved for encoding and upload; values
//     outside [0,100) use DefaultProgressTail.
//
// Outputs:
//   - *Tracker: The tracker.
func NewTracker(store Store, logger *slog.Logger, tail float64) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if tail < 0 || tail >= 100 {
		tail = DefaultProgressTail
	}
	return &Tracker{store: store, logger: logger, tail: tail, now: time.Now}
}

// OnTerminal registers an observer for finished jobs.
func (t *Tracker) OnTerminal(o TerminalObserver) {
	t.observers = append(t.observers, o)
}

// Store returns the underlying job store.
func (t *Tracker) Store() Store {
	return t.store
}

// Create registers a new queued job for req.
func (t *Tracker) Create(ctx context.Context, req *model.RenderRequest) (*model.Job, error) {
	now := t.now().UTC()
	job := &model.Job{
		ID:        uuid.NewString(),
		Status:    model.JobStatusQueued,
		Style:     req.Style,
		Scenes:    len(req.Scenes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Create(ctx, job); err != nil {
		return nil, err
	}
	t.logger.InfoContext(ctx, "job created", "job_id", job.ID, "scenes", job.Scenes)
	return job, nil
}

// Get returns the job or ErrJobNotFound.
func (t *Tracker) Get(ctx context.Context, id string) (*model.Job, error) {
	return t.store.Get(ctx, id)
}

func checkTransition(job *model.Job, next model.JobStatus) error {
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, job.ID, job.Status)
	}
	if !job.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, next)
	}
	return nil
}

// Advance moves the job to the next phase.
func (t *Tracker) Advance(ctx context.Context, id string, next model.JobStatus) error {
	job, err := t.store.Update(ctx, id, func(job *model.Job) error {
		if err := checkTransition(job, next); err != nil {
			return err
		}
		job.Status = next
		job.UpdatedAt = t.now().UTC()
		if next == model.JobStatusCompleted {
			job.Progress = 100
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "job advanced", "job_id", id, "status", next)
	if job.Status.IsTerminal() {
		t.notify(ctx, job)
	}
	return nil
}

// ReportProgress records that done of total scenes are composed. Progress
// only moves forward and stays below the reserved tail.
func (t *Tracker) ReportProgress(ctx context.Context, id string, done, total int) error {
	if total <= 0 {
		return nil
	}
	done = max(0, min(done, total))
	value := float64(done) / float64(total) * (100 - t.tail)
	_, err := t.store.Update(ctx, id, func(job *model.Job) error {
		if job.Status != model.JobStatusProcessing {
			return fmt.Errorf("%w: progress reported while %s", ErrInvalidTransition, job.Status)
		}
		job.Progress = math.Max(job.Progress, round2(value))
		job.Phase = fmt.Sprintf("%d/%d", done, total)
		job.UpdatedAt = t.now().UTC()
		return nil
	})
	return err
}

// BeginFinalization marks every scene composed; only the final encode and
// upload remain.
func (t *Tracker) BeginFinalization(ctx context.Context, id string) error {
	_, err := t.store.Update(ctx, id, func(job *model.Job) error {
		if job.Status != model.JobStatusProcessing {
			return fmt.Errorf("%w: finalizing while %s", ErrInvalidTransition, job.Status)
		}
		job.Progress = math.Max(job.Progress, 100-t.tail)
		job.UpdatedAt = t.now().UTC()
		return nil
	})
	return err
}

// Complete finishes a processing job with the delivered video URL.
func (t *Tracker) Complete(ctx context.Context, id, videoURL string) error {
	job, err := t.store.Update(ctx, id, func(job *model.Job) error {
		if err := checkTransition(job, model.JobStatusCompleted); err != nil {
			return err
		}
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.VideoURL = videoURL
		job.UpdatedAt = t.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "job completed", "job_id", id, "video_url", videoURL)
	t.notify(ctx, job)
	return nil
}

// Fail moves a job to error. Failing a job that already finished is a no-op.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	job, err := t.store.Update(ctx, id, func(job *model.Job) error {
		if job.Status.IsTerminal() {
			return ErrJobTerminal
		}
		job.Status = model.JobStatusError
		job.Error = msg
		job.UpdatedAt = t.now().UTC()
		return nil
	})
	if errors.Is(err, ErrJobTerminal) {
		t.logger.WarnContext(ctx, "failure reported for finished job", "job_id", id, "error", msg)
		return nil
	}
	if err != nil {
		return err
	}
	t.logger.ErrorContext(ctx, "job failed", "job_id", id, "status", job.Status, "error", msg)
	t.notify(ctx, job)
	return nil
}

func (t *Tracker) notify(ctx context.Context, job *model.Job) {
	for _, o := range t.observers {
		o(ctx, job.Clone())
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
