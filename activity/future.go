// Copyright 2025 Nguyen Nhat Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package activity

import (
	"context"
	"sync"
)

// Future is the single-assignment result of an asynchronous handler.
// Get blocks until the future settles or ctx is done; the calling
// goroutine is the only thing parked, other invocations proceed
// independently.
type Future[T any] struct {
	once sync.Once
	done chan struct{}

	value T
	err   error
}

// NewFuture returns an unsettled future. The handler settles it exactly
// once via Resolve or Fail; later calls are no-ops.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved lifts an already-computed value into the future shape. This is
// how synchronous handlers share the asynchronous invocation pipeline.
func Resolved[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(value)
	return f
}

// Failed lifts an error into the future shape.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Fail(err)
	return f
}

// Resolve settles the future with a value.
func (f *Future[T]) Resolve(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// Fail settles the future with an error.
func (f *Future[T]) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Get waits for the future to settle. Context cancellation surfaces as
// the context's error so the classifier sees it as an aborting condition.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
