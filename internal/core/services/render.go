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

// Package services exposes the render engine to the API and message
// listeners: job submission and status on one side, the BigQuery render
// history on the other.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrInvalidRequest marks a request rejected before any job was created.
var ErrInvalidRequest = errors.New("invalid render request")

// Runner executes a job to a terminal state.
type Runner interface {
	Run(ctx context.Context, id string, req *model.RenderRequest) error
}

// Dispatcher starts background work.
type Dispatcher interface {
	Submit(task func()) error
}

// RenderService accepts render requests and reports job status.
type RenderService struct {
	tracker    *jobs.Tracker
	dispatcher Dispatcher
	runner     Runner
	validate   *validator.Validate
}

// NewRenderService wires a RenderService.
//
// Inputs:
//   - tracker: Creates and fails jobs.
//   - dispatcher: Runs accepted jobs in the background.
//   - runner: Renders one job.
//
// Outputs:
//   - *RenderService: The service.
func NewRenderService(tracker *jobs.Tracker, dispatcher Dispatcher, runner Runner) *RenderService {
	return &RenderService{
		tracker:    tracker,
		dispatcher: dispatcher,
		runner:     runner,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks a request without creating a job.
func (s *RenderService) Validate(req *model.RenderRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidRequest)
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for i, scene := range req.Scenes {
		if !scene.HasNarration() && scene.Duration <= 0 {
			return fmt.Errorf("%w: scene %d (%s) needs audioUrl or a positive duration", ErrInvalidRequest, i, scene.ID)
		}
	}
	return nil
}

// Submit validates req, creates its job and hands it to the worker pool. The
// job id is available as soon as Submit returns. When the pool is full the
// job is failed and returned together with jobs.ErrBusy.
func (s *RenderService) Submit(ctx context.Context, req *model.RenderRequest) (*model.Job, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	job, err := s.tracker.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	id := job.ID
	err = s.dispatcher.Submit(func() {
		if err := s.runner.Run(runCtx, id, req); err != nil {
			slog.WarnContext(runCtx, "render job ended in error", "job_id", id, "error", err)
		}
	})
	if err != nil {
		if fErr := s.tracker.Fail(ctx, id, err); fErr != nil {
			slog.WarnContext(ctx, "could not fail rejected job", "job_id", id, "error", fErr)
		}
		if failed, gErr := s.tracker.Get(ctx, id); gErr == nil {
			job = failed
		}
		return job, err
	}
	return job, nil
}

// Status returns the job record, or jobs.ErrJobNotFound.
func (s *RenderService) Status(ctx context.Context, id string) (*model.Job, error) {
	return s.tracker.Get(ctx, id)
}
