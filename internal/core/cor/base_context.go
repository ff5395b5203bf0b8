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

package cor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// BaseContext is the map backed Context used by every chain.
type BaseContext struct {
	data      map[string]interface{}
	errors    map[string]error
	tempFiles []string
	context   context.Context
}

// NewBaseContext returns an empty context. Bind a request context with
// SetContext, or use NewContext.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

// NewContext returns a BaseContext bound to ctx.
func NewContext(ctx context.Context) Context {
	c := NewBaseContext()
	c.SetContext(ctx)
	return c
}

// SetContext replaces the request context.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext returns the request context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every registered temp path, logging the ones that cannot be removed.
func (c *BaseContext) Close() {
	for _, path := range c.tempFiles {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to remove temporary path", "path", path, "error", err)
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

// Add stores value under key.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile registers a file or directory to remove on Close.
func (c *BaseContext) AddTempFile(path string) {
	c.tempFiles = append(c.tempFiles, path)
}

// GetTempFiles returns the registered temp paths.
func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records err under the name of the command that failed.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns the recorded errors by command name.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Err joins the recorded errors, each prefixed with its command name and
// sorted by name. It is nil when nothing failed.
func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.errors))
	for k := range c.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, c.errors[k]))
	}
	return errors.Join(errs...)
}

// Get returns the value under key, or nil.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove deletes key.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// HasErrors reports whether any command failed.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
