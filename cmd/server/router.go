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

package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/services"
)

// RenderAPI submits render jobs and reports their status.
type RenderAPI interface {
	Submit(ctx context.Context, req *model.RenderRequest) (*model.Job, error)
	Status(ctx context.Context, id string) (*model.Job, error)
}

// HistoryAPI lists finished jobs.
type HistoryAPI interface {
	List(ctx context.Context, limit int) ([]*services.JobRecord, error)
}

// PoolStats reports render worker usage.
type PoolStats interface {
	Running() int
	Cap() int
}

// NewRouter builds the HTTP API. serviceName labels the request spans.
func NewRouter(serviceName string, render RenderAPI, history HistoryAPI, pool PoolStats) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Middleware to attach OpenTelemetry to the request
	r.Use(otelgin.Middleware(serviceName))

	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		RenderRouter(apiV1, render)
		HistoryRouter(apiV1, history)
		Dashboard(apiV1, pool)
	}
	return r
}

// RenderRouter registers the submission and status endpoints.
//
// Submission answers 202 with the job id, 400 for a rejected request and 503
// when no worker can take the job. Status answers 404 for unknown ids.
func RenderRouter(r *gin.RouterGroup, render RenderAPI) {
	r.POST("/render-video", func(c *gin.Context) {
		req := &model.RenderRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
			return
		}
		job, err := render.Submit(c.Request.Context(), req)
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, jobs.ErrBusy):
			out := gin.H{"error": err.Error()}
			if job != nil {
				out["jobId"] = job.ID
				out["status"] = job.Status
			}
			c.JSON(http.StatusServiceUnavailable, out)
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": job.Status})
		}
	})

	r.GET("/job-status/:id", func(c *gin.Context) {
		job, err := render.Status(c.Request.Context(), c.Param("id"))
		if errors.Is(err, jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, job)
	})
}

// HistoryRouter registers the render history listing. The limit query
// parameter is clamped to services.MaxHistoryLimit.
func HistoryRouter(r *gin.RouterGroup, history HistoryAPI) {
	r.GET("/jobs/history", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLimit)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		records, err := history.List(c.Request.Context(), services.ClampLimit(limit))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": records})
	})
}

// Dashboard serves worker pool statistics.
func Dashboard(r *gin.RouterGroup, pool PoolStats) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"runningJobs": pool.Running(),
				"workers":     pool.Cap(),
			})
		})
	}
}
