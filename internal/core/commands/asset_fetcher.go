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
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/jaycherian/gcp-go-media-render/internal/cloud"
)

// AssetKind is the broad MIME family a download must belong to.
type AssetKind string

const (
	AssetVisual AssetKind = "visual" // image or video
	AssetAudio  AssetKind = "audio"
)

// DefaultFetchTimeout bounds a single download when none is configured.
const DefaultFetchTimeout = 30 * time.Second

// ErrUnsupportedAsset is returned when a download is not the expected kind of media.
var ErrUnsupportedAsset = errors.New("unsupported asset type")

// ObjectOpener streams Cloud Storage objects.
type ObjectOpener interface {
	Open(ctx context.Context, obj *cloud.GCSObject) (io.ReadCloser, error)
}

// AssetFetcher downloads scene assets into a job's work directory. Cloud
// Storage URIs go through the storage client, everything else over HTTP.
// Each download gets its own deadline.
type AssetFetcher struct {
	objects ObjectOpener
	client  *http.Client
	timeout time.Duration
}

// NewAssetFetcher creates a fetcher for gs:// and http(s) asset references.
//
// Inputs:
//   - objects: Opens gs:// objects.
//   - client: Used for http(s) URLs; nil uses http.DefaultClient.
//   - timeout: Limit for one download; values <= 0 use DefaultFetchTimeout.
//
// Outputs:
//   - *AssetFetcher: The fetcher.
func NewAssetFetcher(objects ObjectOpener, client *http.Client, timeout time.Duration) *AssetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &AssetFetcher{objects: objects, client: client, timeout: timeout}
}

// Fetch downloads url to dir/stem plus the extension of its sniffed type.
func (f *AssetFetcher) Fetch(ctx context.Context, url, dir, stem string, want AssetKind) (string, types.Type, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.open(ctx, url)
	if err != nil {
		return "", filetype.Unknown, f.wrap(ctx, url, err)
	}
	defer body.Close()

	part := filepath.Join(dir, stem+".part")
	out, err := os.Create(part)
	if err != nil {
		return "", filetype.Unknown, fmt.Errorf("create %s: %w", part, err)
	}
	if _, err = io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(part)
		return "", filetype.Unknown, f.wrap(ctx, url, err)
	}
	if err = out.Close(); err != nil {
		return "", filetype.Unknown, fmt.Errorf("close %s: %w", part, err)
	}

	kind, err := filetype.MatchFile(part)
	if err != nil {
		_ = os.Remove(part)
		return "", filetype.Unknown, fmt.Errorf("sniff %s: %w", url, err)
	}
	if !accepts(want, kind) {
		_ = os.Remove(part)
		return "", kind, fmt.Errorf("fetch %s: %w: got %q, want %s", url, ErrUnsupportedAsset, kind.MIME.Value, want)
	}
	path := filepath.Join(dir, stem+"."+kind.Extension)
	if err := os.Rename(part, path); err != nil {
		return "", kind, fmt.Errorf("rename %s: %w", part, err)
	}
	return path, kind, nil
}

func (f *AssetFetcher) open(ctx context.Context, url string) (io.ReadCloser, error) {
	if obj, ok := cloud.ParseGCSURI(url); ok && f.objects != nil {
		return f.objects.Open(ctx, obj)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func (f *AssetFetcher) wrap(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("fetch %s: timed out after %s: %w", url, f.timeout, err)
	}
	return fmt.Errorf("fetch %s: %w", url, err)
}

// accepts lets video containers through as audio; ffprobe decides later
// whether they carry an audio stream.
func accepts(want AssetKind, kind types.Type) bool {
	switch want {
	case AssetVisual:
		return kind.MIME.Type == "image" || kind.MIME.Type == "video"
	case AssetAudio:
		return kind.MIME.Type == "audio" || kind.MIME.Type == "video"
	}
	return kind != filetype.Unknown
}
