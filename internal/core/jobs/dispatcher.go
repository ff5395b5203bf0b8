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

package jobs

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// DefaultPoolSize is the worker count used when none is configured.
const DefaultPoolSize = 4

// Dispatcher runs jobs on a fixed number of workers fed from a bounded
// queue. Submit never waits: a task is handed to an idle worker or queued,
// and when neither is possible it is rejected with ErrBusy.
type Dispatcher struct {
	pool   *ants.Pool
	logger *slog.Logger
	size   int

	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	busy   atomic.Int32
}

// NewDispatcher starts size workers and a queue holding up to queue tasks
// that no idle worker could take.
//
// Inputs:
//   - size: number of concurrent jobs; values <= 0 use DefaultPoolSize.
//   - queue: pending tasks accepted beyond the workers; 0 rejects as soon
//     as every worker is busy.
//   - logger: receives panics and rejections; nil uses slog.Default().
func NewDispatcher(size, queue int, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = DefaultPoolSize
	}
	if queue < 0 {
		queue = 0
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true), ants.WithDisablePurge(true))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	d := &Dispatcher{pool: pool, logger: logger, size: size, tasks: make(chan func(), queue)}
	for i := 0; i < size; i++ {
		if err := pool.Submit(d.work); err != nil {
			_ = d.Shutdown(0)
			return nil, fmt.Errorf("start render worker: %w", err)
		}
	}
	return d, nil
}

func (d *Dispatcher) work() {
	for task := range d.tasks {
		d.run(task)
	}
}

func (d *Dispatcher) run(task func()) {
	d.busy.Add(1)
	defer d.busy.Add(-1)
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("panic in render worker", "panic", fmt.Sprintf("%v", p))
		}
	}()
	task()
}

// Submit schedules task without blocking. It returns ErrBusy when every
// worker is busy and the queue is full, or after Shutdown.
func (d *Dispatcher) Submit(task func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("%w: dispatcher stopped", ErrBusy)
	}
	select {
	case d.tasks <- task:
		return nil
	default:
		d.logger.Warn("render submission rejected", "running", d.Running(), "queued", len(d.tasks))
		return fmt.Errorf("%w: %d workers busy, %d queued", ErrBusy, d.Running(), len(d.tasks))
	}
}

// Running returns the number of tasks executing right now.
func (d *Dispatcher) Running() int {
	return int(d.busy.Load())
}

// Cap returns the number of workers.
func (d *Dispatcher) Cap() int {
	return d.size
}

// Queued returns the number of accepted tasks waiting for a worker.
func (d *Dispatcher) Queued() int {
	return len(d.tasks)
}

// Shutdown stops accepting tasks, lets the workers finish the running and
// queued ones for up to timeout, then releases the pool.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	return d.pool.ReleaseTimeout(timeout)
}
