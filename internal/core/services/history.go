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

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

const (
	QryRecentJobs = "SELECT job_id, status, style, scenes, video_url, error, created_at, finished_at FROM `%s` ORDER BY finished_at DESC LIMIT @limit"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// JobRecord is one archived render job.
type JobRecord struct {
	JobID      string    `bigquery:"job_id" json:"jobId"`
	Status     string    `bigquery:"status" json:"status"`
	Style      string    `bigquery:"style" json:"style,omitempty"`
	Scenes     int       `bigquery:"scenes" json:"scenes"`
	VideoURL   string    `bigquery:"video_url" json:"videoUrl,omitempty"`
	Error      string    `bigquery:"error" json:"error,omitempty"`
	CreatedAt  time.Time `bigquery:"created_at" json:"createdAt"`
	FinishedAt time.Time `bigquery:"finished_at" json:"finishedAt"`
}

// NewJobRecord converts a finished job into its archive row.
func NewJobRecord(job *model.Job) *JobRecord {
	return &JobRecord{
		JobID:      job.ID,
		Status:     string(job.Status),
		Style:      job.Style,
		Scenes:     job.Scenes,
		VideoURL:   job.VideoURL,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.UpdatedAt,
	}
}

// HistoryService archives finished jobs in BigQuery and lists them back.
type HistoryService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	JobsTable      string
}

// Enabled reports whether a table is configured.
func (h *HistoryService) Enabled() bool {
	return h != nil && h.BigqueryClient != nil && len(h.DatasetName) > 0 && len(h.JobsTable) > 0
}

// Record archives job. It does nothing when no table is configured.
func (h *HistoryService) Record(ctx context.Context, job *model.Job) error {
	if !h.Enabled() {
		return nil
	}
	i := h.BigqueryClient.Dataset(h.DatasetName).Table(h.JobsTable).Inserter()
	if err := i.Put(ctx, NewJobRecord(job)); err != nil {
		return fmt.Errorf("bigquery insert failed for job %s: %w", job.ID, err)
	}
	return nil
}

// Observe is a jobs.TerminalObserver that archives every finished job.
// Archive failures are logged; they never change the job.
func (h *HistoryService) Observe(ctx context.Context, job *model.Job) {
	if err := h.Record(context.WithoutCancel(ctx), job); err != nil {
		slog.WarnContext(ctx, "render history not recorded", "job_id", job.ID, "error", err)
	}
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return min(limit, MaxHistoryLimit)
}

// List returns the most recently finished jobs, newest first.
func (h *HistoryService) List(ctx context.Context, limit int) (out []*JobRecord, err error) {
	out = make([]*JobRecord, 0)
	if !h.Enabled() {
		return out, nil
	}
	fqTable := strings.Replace(h.BigqueryClient.Dataset(h.DatasetName).Table(h.JobsTable).FullyQualifiedName(), ":", ".", -1)
	q := h.BigqueryClient.Query(fmt.Sprintf(QryRecentJobs, fqTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: ClampLimit(limit)}}

	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	for {
		r := &JobRecord{}
		err := itr.Next(r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
