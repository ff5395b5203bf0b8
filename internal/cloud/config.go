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

// Package cloud holds the configuration and Google Cloud plumbing of the
// render service: TOML configuration, service clients, the rate limited
// Gemini wrapper, Cloud Storage helpers and the Pub/Sub listener.
//
// This file defines the configuration structs. Values come from
// `.env.toml` overlaid with `.env.<runtime>.toml`; NewConfig fills in the
// defaults before decoding.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings lets every harm category through. Recipes are
// generated from operator supplied scene lists.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource is where finished jobs are archived.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`
	JobsTable   string `toml:"jobs_table"`
}

// PromptTemplates holds the Go text/template sources for model prompts.
type PromptTemplates struct {
	RecipePrompt string `toml:"recipe"`
}

// VertexAiLLMModel configures one generative model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // e.g. application/json
	RateLimit          int     `toml:"rate_limit"`    // requests per second (burst)
}

// TopicSubscription is a Pub/Sub subscription the server listens on.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures where assets are read from and videos are delivered.
type Storage struct {
	OutputBucket       string `toml:"output_bucket"`
	OutputPrefix       string `toml:"output_prefix"`
	AssetBucket        string `toml:"asset_bucket"`
	SoundEffectsObject string `toml:"sound_effects_object"`
	SignedURLMinutes   int    `toml:"signed_url_minutes"` // 0 delivers a public URL
}

// Render configures composition and the ffmpeg toolchain.
type Render struct {
	FFmpegPath             string  `toml:"ffmpeg"`
	FFprobePath            string  `toml:"ffprobe"`
	FPS                    int     `toml:"fps"`
	DefaultAspect          string  `toml:"default_aspect"`
	SceneMarginSeconds     float64 `toml:"scene_margin_seconds"`
	DownloadTimeoutSeconds int     `toml:"download_timeout_seconds"`
	ProgressTailPercent    float64 `toml:"progress_tail_percent"`
	FontFile               string  `toml:"font_file"` // empty uses the embedded Go font
	VideoCodec             string  `toml:"video_codec"`
	AudioCodec             string  `toml:"audio_codec"`
	WorkDir                string  `toml:"work_dir"` // parent of per-job temp dirs; empty uses os.TempDir
	DefaultStyle           string  `toml:"default_style"`
	RecipeModel            string  `toml:"recipe_model"` // key into agent_models
}

// JobStore selects where job records live.
type JobStore struct {
	Backend   string `toml:"backend"` // memory or redis
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
	TTLHours  int    `toml:"ttl_hours"`
	UseTLS    bool   `toml:"use_tls"`
}

// Style is an editing style the recipe model can be asked for.
type Style struct {
	Name               string `toml:"name"`
	Definition         string `toml:"definition"`
	SystemInstructions string `toml:"system_instructions"` // optional override of the model's instructions
}

// Config is the root of the application configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"`
		QueueSize                 int    `toml:"queue_size"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		HTTPPort                  string `toml:"http_port"`
		LogLevel                  string `toml:"log_level"` // debug, info, warn or error
		LogFile                   string `toml:"log_file"`  // mirrored to stdout; empty disables
		EnableTelemetry           bool   `toml:"enable_telemetry"`
		ShutdownTimeoutSeconds    int    `toml:"shutdown_timeout_seconds"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Render             Render                       `toml:"render"`
	JobStore           JobStore                     `toml:"job_store"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	Styles             map[string]Style             `toml:"styles"`
}

const (
	DefaultRecipeModel = "creative-flash"
	DefaultStyle       = "documental"
	JobStoreMemory     = "memory"
	JobStoreRedis      = "redis"
)

// NewConfig returns a Config with initialized maps and defaults for every
// value the service cannot run without.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Styles:             make(map[string]Style),
	}
	c.Application.Name = "media-render"
	c.Application.ThreadPoolSize = 4
	c.Application.HTTPPort = "8080"
	c.Application.LogLevel = "info"
	c.Application.ShutdownTimeoutSeconds = 30
	c.Storage.OutputPrefix = "renders"
	c.Render = Render{
		FFmpegPath:             "ffmpeg",
		FFprobePath:            "ffprobe",
		FPS:                    24,
		DefaultAspect:          "16:9",
		SceneMarginSeconds:     0.5,
		DownloadTimeoutSeconds: 30,
		ProgressTailPercent:    10,
		VideoCodec:             "libx264",
		AudioCodec:             "aac",
		DefaultStyle:           DefaultStyle,
		RecipeModel:            DefaultRecipeModel,
	}
	c.JobStore = JobStore{Backend: JobStoreMemory, KeyPrefix: "render:job:", TTLHours: 72}
	return c
}

// StyleFor returns the named style, falling back to the default style. ok is
// false when the fallback was used.
func (c *Config) StyleFor(key string) (Style, bool) {
	if s, found := c.Styles[key]; found {
		return s, true
	}
	return c.Styles[c.Render.DefaultStyle], false
}
