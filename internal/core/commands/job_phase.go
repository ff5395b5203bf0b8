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

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// JobTracker is the part of the job lifecycle the workflow steps drive.
type JobTracker interface {
	Advance(ctx context.Context, id string, next model.JobStatus) error
	ReportProgress(ctx context.Context, id string, done, total int) error
	BeginFinalization(ctx context.Context, id string) error
}

func jobID(context cor.Context) string {
	id, _ := context.Get(ParamJobID).(string)
	return id
}

// JobPhase moves the job to the next lifecycle phase. It sits between the
// steps of the chain so a failure is reported in the phase where it happened.
type JobPhase struct {
	cor.BaseCommand
	tracker JobTracker
	next    model.JobStatus
}

// NewJobPhase creates a command that moves the job to next.
func NewJobPhase(name string, tracker JobTracker, next model.JobStatus) *JobPhase {
	return &JobPhase{BaseCommand: *cor.NewBaseCommand(name), tracker: tracker, next: next}
}

// IsExecutable requires a job id on the context.
func (p *JobPhase) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && len(jobID(context)) > 0
}

// Execute advances the job; a rejected transition fails the chain.
func (p *JobPhase) Execute(context cor.Context) {
	if err := p.tracker.Advance(context.GetContext(), jobID(context), p.next); err != nil {
		p.Fail(context, err)
		return
	}
	p.Succeed(context)
}

// FinalizationMarker reserves the progress tail for the final encode and
// upload.
type FinalizationMarker struct {
	cor.BaseCommand
	tracker JobTracker
}

// NewFinalizationMarker creates the command that opens the encode tail of the progress bar.
func NewFinalizationMarker(name string, tracker JobTracker) *FinalizationMarker {
	return &FinalizationMarker{BaseCommand: *cor.NewBaseCommand(name), tracker: tracker}
}

// IsExecutable requires a job id on the context.
func (f *FinalizationMarker) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && len(jobID(context)) > 0
}

// Execute records that every scene is composed and encoding starts.
func (f *FinalizationMarker) Execute(context cor.Context) {
	if err := f.tracker.BeginFinalization(context.GetContext(), jobID(context)); err != nil {
		f.Fail(context, err)
		return
	}
	f.Succeed(context)
}
