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

// Package recipe turns the generative model's edit plan into typed, validated
// per-scene instructions.
//
// Logic Flow:
//  1. Parse strips any markdown fence and decodes the recipe JSON. A payload
//     that is not a JSON object with a `scenes` array is the only fatal case.
//  2. Resolve walks the submitted scenes in order and looks up each one's
//     recipe by `scene_id`. Missing entries become empty recipes and extra
//     entries are ignored.
//  3. Each visual effect's loose parameter bag is decoded into the typed
//     config for its type, starting from that type's defaults. Unknown types,
//     undecodable params and out-of-range values are skipped with a warning.
//  4. The transition to the next scene comes from the recipe when present,
//     otherwise from the job's render config. The last scene never has one.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrMalformedRecipe is returned for text that is not a recipe document.
var ErrMalformedRecipe = errors.New("malformed recipe")

// StripFence removes a surrounding ```json ... ``` markdown fence.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Parse decodes a recipe payload.
func Parse(raw string) (*model.Recipe, error) {
	body := StripFence(raw)
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecipe, err)
	}
	scenes, ok := top["scenes"]
	if !ok || string(scenes) == "null" {
		return nil, fmt.Errorf("%w: missing scenes", ErrMalformedRecipe)
	}
	out := &model.Recipe{}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecipe, err)
	}
	return out, nil
}
