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

	"github.com/ngnhng/taskhost/api"
	"github.com/ngnhng/taskhost/api/serde"
)

// Classification is the adapter's verdict on a handler failure. The branch
// on the tag is explicit; there are no filter guards hidden in recover
// paths.
type Classification int

const (
	// Recoverable failures are wrapped into an *ExecutionError.
	Recoverable Classification = iota
	// Fatal failures propagate unchanged.
	Fatal
	// Aborting failures propagate unchanged, preserving identity.
	Aborting
)

func (c Classification) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case Aborting:
		return "aborting"
	default:
		return "recoverable"
	}
}

// Classifier decides the classification of a handler failure. The exact
// predicate set for fatal and aborting conditions is host-specific, so the
// classifier is an injected dependency of the adapter.
type Classifier interface {
	Classify(err error) Classification
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(err error) Classification

func (f ClassifierFunc) Classify(err error) Classification { return f(err) }

// DefaultClassifier treats *FatalError as fatal, and *AbortError plus
// context cancellation as aborting. Everything else is recoverable.
func DefaultClassifier() Classifier {
	return ClassifierFunc(func(err error) Classification {
		var fatal *FatalError
		if errors.As(err, &fatal) {
			return Fatal
		}
		var abort *AbortError
		if errors.As(err, &abort) {
			return Aborting
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Aborting
		}
		return Recoverable
	})
}

// wireCause is the compact record serialized under PropagateSerialized.
type wireCause struct {
	Type    string `json:"type"    msgpack:"type"`
	Message string `json:"message" msgpack:"message"`
}

// wrapRecoverable builds the *ExecutionError for a recoverable failure.
// It runs while the failed error chain is still in hand so the stack and
// cause information survive into the structured record.
func wrapRecoverable(err error, mode api.PropagationMode, s serde.BinarySerde) *ExecutionError {
	wrapped := &ExecutionError{
		Message: err.Error(),
		cause:   err,
	}

	switch mode.OrDefault() {
	case api.PropagateDetails:
		wrapped.payload = detailedCause{details: failureDetails(err)}
	default:
		data, serr := s.SerializeBinary(wireCause{
			Type:    errorTypeName(err),
			Message: err.Error(),
		})
		if serr != nil {
			// The cause text must never be empty; fall back to the bare
			// message when the codec cannot encode the record.
			data = []byte(err.Error())
		}
		wrapped.payload = serializedCause(data)
	}

	return wrapped
}

// failureDetails flattens an error chain into the wire record. The stack
// is captured only at the outermost frame; nested causes keep message and
// type only. A recovered panic already carries the handler's own stack,
// which is more useful than the adapter's.
func failureDetails(err error) *api.FailureDetails {
	details := chainDetails(err)
	if details == nil {
		return nil
	}
	var pe *PanicError
	if errors.As(err, &pe) && pe.Stack != "" {
		details.StackTrace = pe.Stack
	} else {
		details.StackTrace = string(debug.Stack())
	}
	return details
}

func chainDetails(err error) *api.FailureDetails {
	if err == nil {
		return nil
	}
	return &api.FailureDetails{
		Message: err.Error(),
		Type:    errorTypeName(err),
		Cause:   chainDetails(errors.Unwrap(err)),
	}
}

func errorTypeName(err error) string {
	if err == nil {
		return ""
	}
	return reflect.TypeOf(err).String()
}
