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

package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// VisualEffect is one of the geometry configs (KenBurnsConfig, VignetteConfig,
// ColorGradeConfig, TextureConfig, SpeedConfig).
type VisualEffect interface {
	EffectType() string
	Validate() error
}

// Parameter names accepted for each effect, mapped to the typed field name.
// Keys not listed here pass through unchanged; keys the config does not know
// are ignored.
var paramAliases = map[string]map[string]string{
	model.EffectKenBurns: {
		"zoom_direction": "zoom_dir",
		"pan_direction":  "pan_dir",
		"zoom_factor":    "factor_zoom",
		"factor":         "factor_zoom",
	},
	model.EffectVignette: {
		"radio":     "radius",
		"suavizado": "softness",
	},
	model.EffectColorGrade: {
		"brillo":      "brightness",
		"contraste":   "contrast",
		"saturacion":  "saturation",
		"tinte":       "tint",
		"filtro":      "filter",
		"tipo_filtro": "filter",
	},
	model.EffectTextureOverlay: {
		"tipo_textura": "kind",
		"type":         "kind",
		"intensidad":   "intensity",
		"opacidad":     "opacity",
	},
	model.EffectSpeedChange: {
		"speed": "factor",
	},
}

// DecodeEffect builds the typed config for an instruction. It returns
// ErrUnknownEffect for types outside the vocabulary.
func DecodeEffect(in *model.EffectInstruction) (VisualEffect, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil instruction", ErrUnknownEffect)
	}
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	switch kind {
	case model.EffectKenBurns:
		cfg := geometry.DefaultKenBurnsConfig()
		if err := decodeParams(kind, in.Params, &cfg); err != nil {
			return nil, err
		}
		cfg.ZoomDirection = geometry.ZoomDirection(strings.ToLower(string(cfg.ZoomDirection)))
		cfg.PanDirection = geometry.ParsePanDirection(string(cfg.PanDirection))
		return cfg, cfg.Validate()
	case model.EffectVignette:
		cfg := geometry.DefaultVignetteConfig()
		if err := decodeParams(kind, in.Params, &cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	case model.EffectColorGrade:
		cfg := geometry.DefaultColorGradeConfig()
		if err := decodeParams(kind, in.Params, &cfg); err != nil {
			return nil, err
		}
		filter, ok := geometry.ParseColorFilter(string(cfg.Filter))
		if !ok {
			return nil, fmt.Errorf("%w: unknown color filter %q", geometry.ErrInvalidParam, cfg.Filter)
		}
		cfg.Filter = filter
		return cfg, cfg.Validate()
	case model.EffectTextureOverlay:
		cfg := geometry.DefaultTextureConfig()
		if err := decodeParams(kind, in.Params, &cfg); err != nil {
			return nil, err
		}
		if cfg.Kind == "grano" {
			cfg.Kind = geometry.TextureGrain
		}
		return cfg, cfg.Validate()
	case model.EffectSpeedChange:
		cfg := geometry.DefaultSpeedConfig()
		if err := decodeParams(kind, in.Params, &cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, in.Type)
}

func decodeParams(kind string, params map[string]interface{}, into interface{}) error {
	if len(params) == 0 {
		return nil
	}
	aliases := paramAliases[kind]
	normalized := make(map[string]interface{}, len(params))
	for k, v := range params {
		key := strings.ToLower(strings.TrimSpace(k))
		if a, ok := aliases[key]; ok {
			key = a
		}
		normalized[key] = v
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", geometry.ErrInvalidParam, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %s params: %v", geometry.ErrInvalidParam, kind, err)
	}
	return nil
}
