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
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"google.golang.org/genai"
)

// DefaultRecipePrompt is used when the configuration carries no recipe
// template.
const DefaultRecipePrompt = `You are a video editor working in the "{{ .STYLE_NAME }}" style: {{ .STYLE_DEFINITION }}
{{ if .STYLE_INSTRUCTIONS }}{{ .STYLE_INSTRUCTIONS }}
{{ end }}
Create an edit recipe for these scenes, in order:
{{ .SCENES }}

Visual effects you may use: {{ .VISUAL_EFFECTS }}.
Text effects you may use: {{ .TEXT_EFFECTS }}.
Transitions: none, fade, slide. The last scene has no transition_to_next.
Sound effects, by sfx_id:
{{ .SFX_CATALOG }}

Answer only with JSON shaped like this example:
{{ .EXAMPLE_JSON }}
`

// RecipeCreator asks the generative model for a recipe in the requested
// style. Requests that carry their own recipe, or only direct configuration,
// pass through without a model call.
type RecipeCreator struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        cloud.GenerativeModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewRecipeCreator creates the command that asks the generative model for a
// recipe.
//
// Inputs:
//   - name: The command name, used for spans and counters.
//   - config: Supplies the styles and render defaults quoted in the prompt.
//   - generativeAIModel: The model that writes the recipe.
//   - template: The prompt template; see DefaultRecipePrompt for its fields.
//
// Outputs:
//   - *RecipeCreator: The command.
func NewRecipeCreator(
	name string,
	config *cloud.Config,
	generativeAIModel cloud.GenerativeModel,
	template *template.Template) *RecipeCreator {

	out := &RecipeCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		template:          template}
	out.InputParamName = ParamRequest
	out.OutputParamName = ParamRawRecipe

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))
	return out
}

type promptScene struct {
	ID        string          `json:"id"`
	MediaType model.MediaType `json:"mediaType"`
	Script    string          `json:"script,omitempty"`
	Duration  float64         `json:"duration,omitempty"`
}

// GenerateParams builds the template values for req.
func (t *RecipeCreator) GenerateParams(context cor.Context, req *model.RenderRequest) map[string]interface{} {
	style, ok := t.config.StyleFor(req.Style)
	if !ok {
		slog.WarnContext(context.GetContext(), "unknown style, using default", "style", req.Style, "default", t.config.Render.DefaultStyle)
	}
	params := make(map[string]interface{})
	params["STYLE_NAME"] = style.Name
	params["STYLE_DEFINITION"] = style.Definition
	params["STYLE_INSTRUCTIONS"] = style.SystemInstructions

	scenes := make([]promptScene, 0, len(req.Scenes))
	for _, s := range req.Scenes {
		scenes = append(scenes, promptScene{ID: s.ID, MediaType: s.Kind(), Script: s.Script, Duration: s.Duration})
	}
	sceneJSON, _ := json.Marshal(scenes)
	params["SCENES"] = string(sceneJSON)

	params["VISUAL_EFFECTS"] = strings.Join([]string{
		model.EffectKenBurns, model.EffectVignette, model.EffectColorGrade,
		model.EffectTextureOverlay, model.EffectSpeedChange}, ", ")
	params["TEXT_EFFECTS"] = strings.Join([]string{
		model.TextEffectNone, model.TextEffectFade, model.TextEffectPopup,
		model.TextEffectTypewriter, model.TextEffectKaraoke}, ", ")

	var sfx strings.Builder
	if catalog, _ := context.Get(ParamCatalog).(*model.SoundEffectCatalog); catalog != nil {
		for _, e := range catalog.Effects {
			sfx.WriteString(fmt.Sprintf("- %s: %s\n", e.ID, e.Description))
		}
	}
	if sfx.Len() == 0 {
		sfx.WriteString("(none available, leave sound_effects empty)\n")
	}
	params["SFX_CATALOG"] = sfx.String()

	exampleRecipe, _ := json.Marshal(model.GetExampleRecipe())
	params["EXAMPLE_JSON"] = string(exampleRecipe)
	return params
}

// Execute writes the raw recipe text to the output param. A request carrying
// its own recipe is passed through, and a request without a style yields an
// empty recipe without calling the model.
func (t *RecipeCreator) Execute(context cor.Context) {
	req := context.Get(t.GetInputParam()).(*model.RenderRequest)
	switch {
	case len(req.Recipe) > 0:
		context.Add(t.GetOutputParam(), string(req.Recipe))
		t.Succeed(context)
		return
	case !req.UsesAI():
		context.Add(t.GetOutputParam(), "")
		t.Succeed(context)
		return
	}
	if t.generativeAIModel == nil {
		t.Fail(context, fmt.Errorf("no generative model configured for style %q", req.Style))
		return
	}

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(context, req)); err != nil {
		t.Fail(context, fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateMultiModalResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		t.generativeAIModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: buffer.String()}}, Role: "user"}})
	if err != nil {
		t.Fail(context, fmt.Errorf("gemini request failed: %w", err))
		return
	}
	slog.DebugContext(context.GetContext(), "recipe generated", "style", req.Style, "bytes", len(out))
	t.Succeed(context)
	context.Add(t.GetOutputParam(), out)
}
