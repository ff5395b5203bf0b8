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

// Package transition computes how two adjacent scenes are joined: a hard
// cut, a crossfade or a directional slide. Crossfade and slide overlap the
// tail of the first scene with the head of the second, so the joined length is
// len(A) + len(B) - duration.
package transition

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-media-render/internal/core/geometry"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ErrTransitionTooLong is returned when a transition outlasts one of its scenes.
var ErrTransitionTooLong = errors.New("transition longer than an adjacent scene")

// Direction is the way the outgoing scene leaves the frame.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

var directionAliases = map[string]Direction{
	"left": Left, "izquierda": Left,
	"right": Right, "derecha": Right,
	"up": Up, "top": Up, "arriba": Up,
	"down": Down, "bottom": Down, "abajo": Down,
}

// ParseDirection resolves a direction keyword; unknown values slide left.
func ParseDirection(in string) Direction {
	if d, ok := directionAliases[strings.ToLower(strings.TrimSpace(in))]; ok {
		return d
	}
	return Left
}

// Transition joins scene A with scene B.
type Transition struct {
	Type      model.TransitionType
	Duration  float64
	Direction Direction
}

// New validates spec against the lengths of the two scenes it joins. A nil
// spec or type none is a cut.
func New(spec *model.TransitionSpec, lenA, lenB float64) (*Transition, error) {
	if spec == nil || spec.Type == "" || spec.Type == model.TransitionNone || spec.Duration <= 0 {
		return &Transition{Type: model.TransitionNone}, nil
	}
	switch spec.Type {
	case model.TransitionFade, model.TransitionSlide:
	default:
		return nil, fmt.Errorf("unknown transition type %q", spec.Type)
	}
	if spec.Duration > math.Min(lenA, lenB) {
		return nil, fmt.Errorf("%w: %.3fs between scenes of %.3fs and %.3fs", ErrTransitionTooLong, spec.Duration, lenA, lenB)
	}
	return &Transition{Type: spec.Type, Duration: spec.Duration, Direction: ParseDirection(spec.Direction)}, nil
}

// Overlap is how much of the two scenes play at the same time.
func (t *Transition) Overlap() float64 {
	if t == nil || t.Type == model.TransitionNone {
		return 0
	}
	return t.Duration
}

// Length of A followed by B through this transition.
func (t *Transition) Length(lenA, lenB float64) float64 {
	return lenA + lenB - t.Overlap()
}

// StartOfB is the time on A's clock at which B begins.
func (t *Transition) StartOfB(lenA float64) float64 {
	return lenA - t.Overlap()
}

func (t *Transition) progress(at float64) float64 {
	if t.Duration <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, at/t.Duration))
}

// CrossfadeOpacity is B's opacity at time at into the transition.
func (t *Transition) CrossfadeOpacity(at float64) float64 {
	return t.progress(at)
}

// Point is a top-left clip position in pixels.
type Point struct {
	X float64
	Y float64
}

// SlidePositions returns where A and B sit at time at into a slide on a
// frame of the given size. A leaves fully in Direction while B enters from the
// opposite edge and lands at the origin when at reaches Duration.
func (t *Transition) SlidePositions(at float64, frame geometry.Size) (a, b Point) {
	p := t.progress(at)
	w, h := frame.W, frame.H
	switch t.Direction {
	case Right:
		return Point{X: w * p}, Point{X: -w + w*p}
	case Up:
		return Point{Y: -h * p}, Point{Y: h - h*p}
	case Down:
		return Point{Y: h * p}, Point{Y: -h + h*p}
	default:
		return Point{X: -w * p}, Point{X: w - w*p}
	}
}

// TotalLength is the timeline length of scenes joined in order by joins,
// where joins[i] sits between scenes i and i+1.
func TotalLength(lengths []float64, joins []*Transition) float64 {
	total := 0.0
	for i, l := range lengths {
		total += l
		if i < len(joins) {
			total -= joins[i].Overlap()
		}
	}
	return total
}
