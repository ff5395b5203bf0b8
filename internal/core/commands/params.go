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

// Package commands holds the steps of the render workflow. Each step is a
// cor.Command that reads its inputs from named context keys, records failures
// with AddError and leaves its result under its output key.
package commands

// Context keys shared by the render workflow steps.
const (
	ParamJobID       = "__JOB_ID__"
	ParamRequest     = "__REQUEST__"
	ParamWorkDir     = "__WORK_DIR__"
	ParamCatalog     = "__SFX_CATALOG__"
	ParamRawRecipe   = "__RAW_RECIPE__"
	ParamRecipe      = "__RECIPE__"
	ParamResolved    = "__RESOLVED_SCENES__"
	ParamComposites  = "__SCENE_COMPOSITES__"
	ParamTimeline    = "__TIMELINE__"
	ParamVideoFile   = "__VIDEO_FILE__"
	ParamVideoURL    = "__VIDEO_URL__"
	ParamVideoObject = "__VIDEO_OBJECT__"
)
