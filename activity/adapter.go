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
	"errors"
	"reflect"
	"runtime/debug"

	"github.com/ngnhng/taskhost/api/serde"
)

// Activity is the sole invocation surface the engine sees. Synchronous and
// asynchronous handlers satisfy it through the same adapter, so the engine
// calls either uniformly.
type Activity interface {
	// Invoke decodes input, runs the handler, and returns the serialized
	// result. On failure it returns one of: *SignatureMismatchError, the
	// original fatal or aborting error, or an *ExecutionError.
	Invoke(ctx *Context, input []byte) ([]byte, error)
}

// Option customizes an adapter.
type Option func(*adapterConfig)

type adapterConfig struct {
	serde      serde.BinarySerde
	classifier Classifier
}

// WithSerde overrides the default JSON codec.
func WithSerde(s serde.BinarySerde) Option {
	return func(c *adapterConfig) {
		if s != nil {
			c.serde = s
		}
	}
}

// WithClassifier overrides the default failure classifier.
func WithClassifier(cl Classifier) Option {
	return func(c *adapterConfig) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// New wraps a synchronous handler. Its completed result is lifted into an
// already-resolved future so the whole invocation pipeline is shared with
// asynchronous handlers.
func New[I, O any](fn func(ctx context.Context, input I) (O, error), opts ...Option) Activity {
	return newAdapter(func(ctx context.Context, input I) *Future[O] {
		out, err := fn(ctx, input)
		if err != nil {
			return Failed[O](err)
		}
		return Resolved(out)
	}, opts...)
}

// NewAsync wraps a handler that completes through a Future. The adapter
// suspends on Future.Get while the handler performs downstream work.
func NewAsync[I, O any](fn func(ctx context.Context, input I) *Future[O], opts ...Option) Activity {
	return newAdapter(fn, opts...)
}

func newAdapter[I, O any](fn func(ctx context.Context, input I) *Future[O], opts ...Option) *adapter[I, O] {
	cfg := adapterConfig{
		serde:      serde.Default(),
		classifier: DefaultClassifier(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &adapter[I, O]{
		fn:         fn,
		serde:      cfg.serde,
		converter:  serde.NewTypeConverter(cfg.serde),
		classifier: cfg.classifier,
	}
}

// adapter is the typed bridge between the engine's wire representation and
// one user handler. It holds no per-invocation state; concurrent Invoke
// calls are independent.
type adapter[I, O any] struct {
	fn         func(ctx context.Context, input I) *Future[O]
	serde      serde.BinarySerde
	converter  *serde.TypeConverter
	classifier Classifier
}

var _ Activity = (*adapter[int, int])(nil)

func (a *adapter[I, O]) Invoke(ctx *Context, input []byte) ([]byte, error) {
	ctx = ctx.orBackground()

	in, err := decodeSingleArg(input, reflect.TypeFor[I](), a.serde, a.converter)
	if err != nil {
		// Decode failures precede the handler and bypass classification;
		// this includes the signature mismatch for arity above one.
		return nil, err
	}

	// The zero value of an interface-typed I is a nil interface; a bare
	// assertion on it panics, so the failed-assertion zero is kept instead.
	arg, _ := in.Interface().(I)

	out, err := a.call(ctx, arg)
	if err != nil {
		switch a.classifier.Classify(err) {
		case Fatal, Aborting:
			return nil, err
		default:
			return nil, wrapRecoverable(err, ctx.Propagation, a.serde)
		}
	}

	return a.serde.SerializeBinary(out)
}

// call dispatches to the handler and awaits its future. A panic in the
// handler settles the invocation as a recoverable failure carrying the
// handler's stack.
func (a *adapter[I, O]) call(ctx *Context, input I) (O, error) {
	fut := func() (f *Future[O]) {
		defer func() {
			if r := recover(); r != nil {
				f = Failed[O](&PanicError{Value: r, Stack: string(debug.Stack())})
			}
		}()
		return a.fn(ctx, input)
	}()
	if fut == nil {
		var zero O
		return zero, errors.New("activity handler returned a nil future")
	}
	return fut.Get(ctx)
}
