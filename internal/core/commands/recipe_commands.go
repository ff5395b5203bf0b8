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
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
	"github.com/jaycherian/gcp-go-media-render/internal/core/recipe"
)

// RecipeParser decodes the raw recipe text. An empty text is the empty
// recipe used in direct configuration mode.
type RecipeParser struct {
	cor.BaseCommand
}

// NewRecipeParser creates the command that turns raw model output into a Recipe.
func NewRecipeParser(name string) *RecipeParser {
	out := &RecipeParser{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamRawRecipe
	out.OutputParamName = ParamRecipe
	return out
}

// Execute parses the raw recipe. Empty text yields an empty Recipe, which
// resolves to plain scenes.
func (p *RecipeParser) Execute(context cor.Context) {
	raw, _ := context.Get(p.GetInputParam()).(string)
	if len(strings.TrimSpace(raw)) == 0 {
		context.Add(p.GetOutputParam(), &model.Recipe{})
		p.Succeed(context)
		return
	}
	r, err := recipe.Parse(raw)
	if err != nil {
		p.Fail(context, err)
		return
	}
	p.Succeed(context)
	context.Add(p.GetOutputParam(), r)
}

// RecipeResolver pairs every requested scene with its recipe entry.
type RecipeResolver struct {
	cor.BaseCommand
	interpreter *recipe.Interpreter
}

// NewRecipeResolver creates the command that matches the recipe against the scene list.
func NewRecipeResolver(name string, interpreter *recipe.Interpreter) *RecipeResolver {
	out := &RecipeResolver{BaseCommand: *cor.NewBaseCommand(name), interpreter: interpreter}
	out.InputParamName = ParamRecipe
	out.OutputParamName = ParamResolved
	return out
}

// IsExecutable requires the request and the parsed recipe.
func (r *RecipeResolver) IsExecutable(context cor.Context) bool {
	return r.BaseCommand.IsExecutable(context) && context.Get(ParamRequest) != nil
}

// Execute stores one resolved scene per requested scene, in request order.
func (r *RecipeResolver) Execute(context cor.Context) {
	req := context.Get(ParamRequest).(*model.RenderRequest)
	rec := context.Get(r.GetInputParam()).(*model.Recipe)
	resolved := r.interpreter.Resolve(req.Scenes, rec, req.Config)
	r.Succeed(context)
	context.Add(r.GetOutputParam(), resolved)
}
