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

package model

import "time"

// JobStatus is a phase of the render job lifecycle:
// queued -> pending_brain -> pending_render -> processing -> completed | error.
type JobStatus string

const (
	JobStatusQueued        JobStatus = "queued"
	JobStatusPendingBrain  JobStatus = "pending_brain"
	JobStatusPendingRender JobStatus = "pending_render"
	JobStatusProcessing    JobStatus = "processing"
	JobStatusCompleted     JobStatus = "completed"
	JobStatusError         JobStatus = "error"
)

var jobStatusOrder = map[JobStatus]int{
	JobStatusQueued:        0,
	JobStatusPendingBrain:  1,
	JobStatusPendingRender: 2,
	JobStatusProcessing:    3,
	JobStatusCompleted:     4,
}

// IsValid reports whether s is one of the six lifecycle states.
func (s JobStatus) IsValid() bool {
	_, ok := jobStatusOrder[s]
	return ok || s == JobStatusError
}

// IsTerminal reports whether s is completed or error.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// CanTransitionTo allows only the next phase in order, or error from any
// non-terminal phase.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() || !s.IsValid() {
		return false
	}
	if next == JobStatusError {
		return true
	}
	cur, ok := jobStatusOrder[s]
	if !ok {
		return false
	}
	n, ok := jobStatusOrder[next]
	return ok && n == cur+1
}

// Job is the tracked state of one render request. VideoURL is only set when
// completed and Error only when failed.
type Job struct {
	ID        string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`        // 0-100, never decreases.
	Phase     string    `json:"phase,omitempty"` // "i/N" while scenes are composed.
	VideoURL  string    `json:"videoUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	Style     string    `json:"style,omitempty"`
	Scenes    int       `json:"scenes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy safe to hand out of a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	return &out
}

// SoundEffect is one entry of the sound effect catalog kept in Cloud Storage.
type SoundEffect struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// SoundEffectCatalog indexes sound effects by id.
type SoundEffectCatalog struct {
	Effects []*SoundEffect
	byID    map[string]*SoundEffect
}

// NewSoundEffectCatalog indexes effects; entries without an id are kept but not indexed.
func NewSoundEffectCatalog(effects []*SoundEffect) *SoundEffectCatalog {
	c := &SoundEffectCatalog{Effects: effects, byID: make(map[string]*SoundEffect, len(effects))}
	for _, e := range effects {
		if e != nil && len(e.ID) > 0 {
			c.byID[e.ID] = e
		}
	}
	return c
}

// Lookup finds a sound effect; a nil catalog finds nothing.
func (c *SoundEffectCatalog) Lookup(id string) (*SoundEffect, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byID[id]
	return e, ok
}

// Len returns the number of indexed effects.
func (c *SoundEffectCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}
