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
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
	"github.com/jaycherian/gcp-go-media-render/internal/core/cor"
)

// Uploader stores a local file in Cloud Storage and can sign URLs for it.
type Uploader interface {
	Upload(ctx context.Context, path string, obj *cloud.GCSObject) error
	Sign(ctx context.Context, obj *cloud.GCSObject, expires time.Duration) (string, error)
}

// VideoUpload delivers the encoded video to
// gs://<bucket>/<prefix>/<file> and publishes its URL: a V4 signed URL when
// signedFor is positive, the public URL otherwise.
type VideoUpload struct {
	cor.BaseCommand
	uploader  Uploader
	bucket    string
	prefix    string
	signedFor time.Duration
}

// NewVideoUpload creates the delivery command.
//
// Inputs:
//   - name: The command name.
//   - uploader: Copies the file to Cloud Storage and signs URLs.
//   - bucket, prefix: Destination of <prefix>/<jobID>.mp4.
//   - signedFor: Lifetime of a signed URL; 0 delivers the public URL.
//
// Outputs:
//   - *VideoUpload: The command.
func NewVideoUpload(name string, uploader Uploader, bucket, prefix string, signedFor time.Duration) *VideoUpload {
	out := &VideoUpload{
		BaseCommand: *cor.NewBaseCommand(name),
		uploader:    uploader,
		bucket:      bucket,
		prefix:      prefix,
		signedFor:   signedFor,
	}
	out.InputParamName = ParamVideoFile
	out.OutputParamName = ParamVideoURL
	return out
}

// Execute uploads the rendered video and stores its delivery URL.
func (u *VideoUpload) Execute(context cor.Context) {
	file := context.Get(u.GetInputParam()).(string)
	if len(u.bucket) == 0 {
		u.Fail(context, errors.New("no output bucket configured"))
		return
	}
	obj := &cloud.GCSObject{
		Bucket:   u.bucket,
		Name:     path.Join(u.prefix, filepath.Base(file)),
		MIMEType: "video/mp4",
	}
	if err := u.uploader.Upload(context.GetContext(), file, obj); err != nil {
		u.Fail(context, err)
		return
	}

	url := obj.PublicURL()
	if u.signedFor > 0 {
		signed, err := u.uploader.Sign(context.GetContext(), obj, u.signedFor)
		if err != nil {
			u.Fail(context, fmt.Errorf("sign delivery url: %w", err))
			return
		}
		url = signed
	}
	slog.InfoContext(context.GetContext(), "video delivered", "job_id", jobID(context), "object", obj.URI())
	u.Succeed(context)
	context.Add(ParamVideoObject, obj)
	context.Add(u.GetOutputParam(), url)
}
