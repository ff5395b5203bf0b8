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

// Package test provides shared helpers for the test suites: the test
// configuration from the repository's configs directory and sample messages.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
)

var (
	configOnce sync.Once
	config     *cloud.Config
)

// HandleErr fails the test when err is set.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir is the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at the test configuration.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads .env.toml and .env.test.toml once per test binary.
func GetConfig() *cloud.Config {
	configOnce.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v", err)
		}
		c := cloud.NewConfig()
		if err := cloud.LoadConfig(c); err != nil {
			log.Fatalf("failed to load test configuration: %v", err)
		}
		config = c
	})
	return config
}

// GetTestRenderRequestText is a style mode render request as it arrives on
// the RenderRequests subscription.
func GetTestRenderRequestText() string {
	return `{
  "style": "cinematico",
  "scenes": [
    {
      "id": "intro",
      "mediaUrl": "gs://media-render-assets/samples/intro.jpg",
      "audioUrl": "gs://media-render-assets/samples/intro.mp3",
      "mediaType": "image"
    },
    {
      "id": "harbor",
      "mediaUrl": "gs://media-render-assets/samples/harbor.mp4",
      "audioUrl": "gs://media-render-assets/samples/harbor.mp3",
      "mediaType": "video"
    }
  ]
}`
}

// GetTestDirectRenderRequestText is a direct configuration request using the
// simplified scene form.
func GetTestDirectRenderRequestText() string {
	return `{
  "config": {
    "aspectRatio": "9:16",
    "cover": true,
    "subtitles": true,
    "musicUrl": "gs://media-render-assets/music/calm.mp3",
    "musicVolume": 0.2,
    "transitionType": "slide",
    "transitionDuration": 0.4,
    "transitionDirection": "izquierda"
  },
  "scenes": [
    {"id": "s1", "imageUrl": "gs://media-render-assets/samples/1.png", "duration": 4, "script": "Primera escena"},
    {"id": "s2", "imageUrl": "gs://media-render-assets/samples/2.png", "duration": 3.5, "script": "Segunda escena"}
  ]
}`
}
