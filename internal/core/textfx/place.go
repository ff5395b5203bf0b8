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

package textfx

import (
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// AnchorFraction maps a keyword anchor to its share of the free space:
// left/top 0, center 0.5, right/bottom 1.
func AnchorFraction(keyword string) float64 {
	switch strings.ToLower(keyword) {
	case model.AnchorLeft, model.AnchorTop:
		return 0
	case model.AnchorRight, model.AnchorBottom:
		return 1
	}
	return 0.5
}

// Place returns the top-left corner of a box of size box positioned on frame.
func Place(pos model.Position, frame, box geometry.Size) (x, y float64) {
	if pos.X != nil {
		x = *pos.X
	} else {
		x = AnchorFraction(pos.Horizontal) * (frame.W - box.W)
	}
	if pos.Y != nil {
		y = *pos.Y
	} else {
		y = AnchorFraction(pos.Vertical) * (frame.H - box.H)
	}
	return x, y
}
