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
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/jobs"
	"github.com/jaycherian/gcp-go-media-render/internal/core/services"
	"github.com/jaycherian/gcp-go-media-render/internal/core/workflow"
)

// StateManager holds the long lived objects shared by the HTTP handlers and listeners.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	tracker        *jobs.Tracker
	dispatcher     *jobs.Dispatcher
	renderService  *services.RenderService
	historyService *services.HistoryService
}

var state = &StateManager{}

// SetupOS points the configuration loader at the local configs directory
// unless the environment already selects one.
func SetupOS() (err error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the configuration once and caches it on the state.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// NewJobStore selects the job record backend from the configuration.
func NewJobStore(config *cloud.Config, cloudClients *cloud.ServiceClients) (jobs.Store, error) {
	switch config.JobStore.Backend {
	case "", cloud.JobStoreMemory:
		return jobs.NewMemoryStore(), nil
	case cloud.JobStoreRedis:
		if cloudClients.RedisClient == nil {
			return nil, fmt.Errorf("job store %q selected but no redis client is connected", config.JobStore.Backend)
		}
		ttl := time.Duration(config.JobStore.TTLHours) * time.Hour
		return jobs.NewRedisStore(cloudClients.RedisClient, config.JobStore.KeyPrefix, ttl), nil
	default:
		return nil, fmt.Errorf("unknown job store backend %q", config.JobStore.Backend)
	}
}

// InitState creates the cloud clients, job store, tracker, worker pool and
// render pipeline, and starts the Pub/Sub listeners.
//
// Inputs:
//   - ctx: Lifetime of the listeners; cancel it to stop receiving.
//   - config: The loaded application configuration.
//
// Outputs:
//   - error: The first component that could not be created.
func InitState(ctx context.Context, config *cloud.Config) error {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	store, err := NewJobStore(config, cloudClients)
	if err != nil {
		return err
	}

	state.historyService = &services.HistoryService{
		BigqueryClient: cloudClients.BiqQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		JobsTable:      config.BigQueryDataSource.JobsTable,
	}

	state.tracker = jobs.NewTracker(store, slog.Default(), config.Render.ProgressTailPercent)
	if state.historyService.Enabled() {
		state.tracker.OnTerminal(state.historyService.Observe)
	}

	state.dispatcher, err = jobs.NewDispatcher(config.Application.ThreadPoolSize, config.Application.QueueSize, slog.Default())
	if err != nil {
		return err
	}

	pipeline, err := workflow.NewRenderPipeline(config, cloudClients, state.tracker)
	if err != nil {
		return err
	}
	state.renderService = services.NewRenderService(state.tracker, state.dispatcher, pipeline)

	SetupListeners(ctx, cloudClients, state.renderService)
	return nil
}

// Close releases the worker pool and the cloud clients. Running jobs get up
// to timeout to finish.
func (s *StateManager) Close(timeout time.Duration) {
	if s.dispatcher != nil {
		if err := s.dispatcher.Shutdown(timeout); err != nil {
			slog.Warn("render workers did not stop in time", "error", err)
		}
	}
	if s.cloud != nil {
		if err := s.cloud.Close(); err != nil {
			slog.Warn("failed to close cloud clients", "error", err)
		}
	}
}
