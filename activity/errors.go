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
	"fmt"

	"github.com/ngnhng/taskhost/api"
)

// SignatureMismatchError is returned when the serialized argument list
// carries more than one element. Arity above one is a leftover of an
// abandoned multi-parameter calling convention and is always rejected
// before the handler runs, so it is never wrapped.
type SignatureMismatchError struct {
	Got int
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("got %d input parameters, more than expected; signature mismatch", e.Got)
}

// FatalError marks a process-level unrecoverable condition (e.g. host
// resource exhaustion). The adapter propagates it unchanged: never
// wrapped, never logged by this layer.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// NewFatalError creates a new FatalError
func NewFatalError(err error) *FatalError {
	return &FatalError{Cause: err}
}

// AbortError signals that the engine deliberately terminated the
// invocation. It propagates with its identity intact so the engine can
// tell it apart from a wrapped recoverable failure.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// NewAbortError creates a new AbortError
func NewAbortError(err error) *AbortError {
	return &AbortError{Cause: err}
}

// PanicError represents a panic recovered from handler code. It is a
// recoverable failure like any other handler error.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("activity panic: %v", e.Value)
}

// failurePayload is the two-case variant carried by ExecutionError:
// serialized cause text or structured details, selected by the
// invocation's propagation mode.
type failurePayload interface {
	isFailurePayload()
}

type serializedCause []byte

func (serializedCause) isFailurePayload() {}

type detailedCause struct {
	details *api.FailureDetails
}

func (detailedCause) isFailurePayload() {}

// ExecutionError is the normalized form of a recoverable handler failure.
// Its message equals the original failure's message, and the original
// cause is retained for diagnostics via Unwrap.
type ExecutionError struct {
	Message string

	cause   error
	payload failurePayload
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.cause
}

// SerializedCause returns the codec-serialized cause text, if this failure
// was built under PropagateSerialized.
func (e *ExecutionError) SerializedCause() ([]byte, bool) {
	if p, ok := e.payload.(serializedCause); ok {
		return []byte(p), true
	}
	return nil, false
}

// Details returns the structured failure record, if this failure was built
// under PropagateDetails.
func (e *ExecutionError) Details() (*api.FailureDetails, bool) {
	if p, ok := e.payload.(detailedCause); ok {
		return p.details, true
	}
	return nil, false
}
