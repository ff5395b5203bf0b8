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

package cloud

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

const publicHost = "https://storage.googleapis.com/"

// GCSObject names an object in Cloud Storage.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// URI returns the gs:// form of the object.
func (o *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// PublicURL is the anonymous HTTPS address of the object.
func (o *GCSObject) PublicURL() string {
	return publicHost + o.Bucket + "/" + (&url.URL{Path: o.Name}).EscapedPath()
}

// ParseGCSURI accepts gs://bucket/name and the storage.googleapis.com,
// storage.cloud.google.com and mTLS HTTPS forms. ok is false for anything
// else, such as an ordinary web URL.
func ParseGCSURI(in string) (*GCSObject, bool) {
	var rest string
	switch {
	case strings.HasPrefix(in, "gs://"):
		rest = strings.TrimPrefix(in, "gs://")
	default:
		u, err := url.Parse(in)
		if err != nil || u.Scheme != "https" {
			return nil, false
		}
		switch u.Host {
		case "storage.googleapis.com", "storage.cloud.google.com", "storage.mtls.cloud.google.com":
			rest = strings.TrimPrefix(u.Path, "/")
		default:
			return nil, false
		}
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return &GCSObject{Bucket: parts[0], Name: parts[1]}, true
}

// ReadObject returns the whole content of an object.
func ReadObject(ctx context.Context, client *storage.Client, obj *GCSObject) ([]byte, error) {
	r, err := client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", obj.URI(), err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", obj.URI(), err)
	}
	return data, nil
}

// UploadFile copies a local file into obj.
func UploadFile(ctx context.Context, client *storage.Client, path string, obj *GCSObject) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	if len(obj.MIMEType) > 0 {
		w.ContentType = obj.MIMEType
	}
	if written, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s (%d bytes written): %w", obj.URI(), written, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", obj.URI(), err)
	}
	return nil
}

// SignedURL returns a V4 GET URL for obj valid for expires. When iam is set
// the signature comes from the IAM Credentials API as signerEmail, so no key
// file is needed on Cloud Run.
func SignedURL(ctx context.Context, client *storage.Client, iam *credentials.IamCredentialsClient, signerEmail string, obj *GCSObject, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if iam != nil && len(signerEmail) > 0 {
		opts.GoogleAccessID = signerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			resp, err := iam.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", signerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := client.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", obj.URI(), err)
	}
	return u, nil
}

// ObjectStore binds the helpers above to one set of clients.
type ObjectStore struct {
	Client      *storage.Client
	IAM         *credentials.IamCredentialsClient
	SignerEmail string
}

// Open streams the object contents. The caller closes the reader.
func (s *ObjectStore) Open(ctx context.Context, obj *GCSObject) (io.ReadCloser, error) {
	r, err := s.Client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", obj.URI(), err)
	}
	return r, nil
}

// Read returns the whole object.
func (s *ObjectStore) Read(ctx context.Context, obj *GCSObject) ([]byte, error) {
	return ReadObject(ctx, s.Client, obj)
}

// Upload copies the local file at path into obj.
func (s *ObjectStore) Upload(ctx context.Context, path string, obj *GCSObject) error {
	return UploadFile(ctx, s.Client, path, obj)
}

// Sign returns a V4 GET URL for obj valid for expires.
func (s *ObjectStore) Sign(ctx context.Context, obj *GCSObject, expires time.Duration) (string, error) {
	return SignedURL(ctx, s.Client, s.IAM, s.SignerEmail, obj, expires)
}
