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

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/telemetry"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestHandlerUsesCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewHandler(&buf, slog.LevelInfo)).With("job_id", "j1")
	logger.Warn("scene skipped")

	line := decode(t, &buf)
	assert.Equal(t, "WARNING", line["severity"])
	assert.Equal(t, "scene skipped", line["message"])
	assert.Equal(t, "j1", line["job_id"])
	assert.Contains(t, line, "timestamp")
}

func TestHandlerAddsSpanContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	slog.New(telemetry.NewHandler(&buf, slog.LevelInfo)).InfoContext(ctx, "hello")

	line := decode(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["logging.googleapis.com/trace"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["logging.googleapis.com/spanId"])
	assert.Equal(t, true, line["logging.googleapis.com/trace_sampled"])
}

func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	slog.New(telemetry.NewHandler(&buf, telemetry.ParseLevel("warn"))).Info("quiet")
	assert.Zero(t, buf.Len())
	assert.Equal(t, slog.LevelDebug, telemetry.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, telemetry.ParseLevel("loud"))
}

func TestSetupLoggingRoutesStandardLogger(t *testing.T) {
	prev, flags := slog.Default(), log.Flags()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	path := filepath.Join(t.TempDir(), "service.log")
	closer, err := telemetry.SetupLogging("info", path)
	require.NoError(t, err)
	log.Print("legacy line")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "legacy line", entry["message"])
	assert.Equal(t, "INFO", entry["severity"])
}

func TestSetupOpenTelemetryDisabled(t *testing.T) {
	shutdown, err := telemetry.SetupOpenTelemetry(context.Background(), cloud.NewConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
