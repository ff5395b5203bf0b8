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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// Submitter accepts render requests.
type Submitter interface {
	Submit(ctx context.Context, req *model.RenderRequest) (*model.Job, error)
}

// RenderRequestReader submits a render request received as a message. Only
// a full worker pool is reported as an error, so the message is redelivered
// later; requests that can never succeed are logged and dropped.
type RenderRequestReader struct {
	cor.BaseCommand
	submitter Submitter
}

// NewRenderRequestReader creates the command run for each render request message.
func NewRenderRequestReader(name string, submitter Submitter) *RenderRequestReader {
	return &RenderRequestReader{BaseCommand: *cor.NewBaseCommand(name), submitter: submitter}
}

// Execute decodes the message body and submits it.
func (r *RenderRequestReader) Execute(context cor.Context) {
	in := context.Get(r.GetInputParam()).(string)

	var req model.RenderRequest
	if err := json.Unmarshal([]byte(in), &req); err != nil {
		slog.ErrorContext(context.GetContext(), "dropping undecodable render request", "error", err)
		return
	}

	job, err := r.submitter.Submit(context.GetContext(), &req)
	switch {
	case errors.Is(err, jobs.ErrBusy):
		r.Fail(context, fmt.Errorf("render request deferred: %w", err))
		return
	case err != nil:
		slog.ErrorContext(context.GetContext(), "dropping render request", "error", err)
		return
	}
	slog.InfoContext(context.GetContext(), "render request accepted", "job_id", job.ID, "scenes", len(req.Scenes))
	r.Succeed(context)
	context.Add(r.GetOutputParam(), job)
}
