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

// Package cor is a small chain-of-responsibility runtime. A Chain runs its
// Commands in order over a shared Context; every command gets its own span
// and success/error counters.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default input key. The chain moves each command's CtxOut
	// value here before running the next command.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// Context is the state shared by the commands of one chain execution.
type Context interface {
	// SetContext replaces the Go context; the chain swaps in each command's
	// span context before running it.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a failure under the name of the command that hit it.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, ordered by key. Nil when there are none.
	Err() error

	// AddTempFile registers a file or directory to delete on Close.
	AddTempFile(path string)
	GetTempFiles() []string

	// Close removes every registered temp path. It is safe to call more than once.
	Close()
}

// Executable is anything a chain can run.
type Executable interface {
	Execute(context Context)
}

// Command is one named, instrumented step of a chain.
type Command interface {
	Executable

	GetName() string
	// GetInputParam is the context key the command reads its primary input from.
	GetInputParam() string
	// GetOutputParam is the context key the command writes its primary output to.
	GetOutputParam() string
	// IsExecutable is checked before Execute; a command that is not executable
	// is skipped.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands run in order.
type Chain interface {
	Command

	// ContinueOnFailure keeps running later commands after one records an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
