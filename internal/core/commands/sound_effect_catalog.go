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
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-render/internal/core/model"
)

// ObjectReader reads a whole Cloud Storage object.
type ObjectReader interface {
	Read(ctx context.Context, obj *cloud.GCSObject) ([]byte, error)
}

// SoundEffectCatalogReader loads the sound effect catalog, a JSON array of
// {"id","url","description"} objects. A missing or unreadable catalog is not
// fatal: the job runs without sound effects.
type SoundEffectCatalogReader struct {
	cor.BaseCommand
	reader ObjectReader
	object *cloud.GCSObject
}

// NewSoundEffectCatalogReader reads the catalog from bucket/object.
func NewSoundEffectCatalogReader(name string, reader ObjectReader, bucket, object string) *SoundEffectCatalogReader {
	out := &SoundEffectCatalogReader{BaseCommand: *cor.NewBaseCommand(name), reader: reader}
	if len(bucket) > 0 && len(object) > 0 {
		out.object = &cloud.GCSObject{Bucket: bucket, Name: object, MIMEType: "application/json"}
	}
	out.OutputParamName = ParamCatalog
	return out
}

// IsExecutable only needs a request context; Execute copes with a missing
// catalog.
func (r *SoundEffectCatalogReader) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute stores the catalog. A missing or unreadable catalog is logged and
// replaced by an empty one.
func (r *SoundEffectCatalogReader) Execute(context cor.Context) {
	catalog := model.NewSoundEffectCatalog(nil)
	defer func() {
		context.Add(r.GetOutputParam(), catalog)
		r.Succeed(context)
	}()
	if r.object == nil || r.reader == nil {
		return
	}

	data, err := r.reader.Read(context.GetContext(), r.object)
	if err != nil {
		slog.WarnContext(context.GetContext(), "sound effect catalog unavailable", "object", r.object.URI(), "error", err)
		return
	}
	var effects []*model.SoundEffect
	if err := json.Unmarshal(data, &effects); err != nil {
		slog.WarnContext(context.GetContext(), "sound effect catalog is not a JSON array", "object", r.object.URI(), "error", err)
		return
	}
	catalog = model.NewSoundEffectCatalog(effects)
	slog.InfoContext(context.GetContext(), "sound effect catalog loaded", "entries", catalog.Len())
}
