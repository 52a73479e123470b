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

package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ngnhng/taskhost/activity"
	"github.com/ngnhng/taskhost/api"
	"github.com/ngnhng/taskhost/api/serde"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	return &Worker{
		id:          "test-worker",
		serde:       serde.Default(),
		classifier:  activity.DefaultClassifier(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		propagation: api.PropagateSerialized,
		registry:    newRegistry(),
	}
}

func testTask() *api.ActivityTask {
	return &api.ActivityTask{
		WorkflowID:   "wf-1",
		ActivityName: "orders.Reserve",
		Attempt:      2,
	}
}

// invokeFailing runs a handler that returns err through a real adapter so
// the outcome mapping sees the same error shapes Run would.
func invokeFailing(t *testing.T, mode api.PropagationMode, err error) error {
	t.Helper()

	act := activity.New(func(ctx context.Context, _ any) (int, error) {
		return 0, err
	})
	actx := activity.NewContext(context.Background())
	actx.Propagation = mode

	_, invokeErr := act.Invoke(actx, nil)
	if invokeErr == nil {
		t.Fatal("expected invocation error")
	}
	return invokeErr
}

func TestResolveOutcomeSuccess(t *testing.T) {
	w := newTestWorker(t)
	task := testTask()

	out := w.resolveOutcome(task, []byte(`"ok"`), nil)

	if out.disposition != ackTask {
		t.Fatalf("disposition = %s, want ack", out.disposition)
	}
	if out.haltErr != nil {
		t.Fatalf("unexpected halt error: %v", out.haltErr)
	}
	completed, ok := out.event.(*api.ActivityCompleted)
	if !ok {
		t.Fatalf("event = %T, want *api.ActivityCompleted", out.event)
	}
	if completed.ID != "wf-1" || completed.ActivityName != task.ActivityName || completed.Attempt != 2 {
		t.Errorf("unexpected event metadata: %+v", completed)
	}
	if string(completed.Result) != `"ok"` {
		t.Errorf("Result = %s", completed.Result)
	}
}

func TestResolveOutcomeRecoverableFailure(t *testing.T) {
	handlerErr := errors.New("inventory service unavailable")

	t.Run("SerializedCause", func(t *testing.T) {
		w := newTestWorker(t)
		task := testTask()
		invokeErr := invokeFailing(t, api.PropagateSerialized, handlerErr)

		out := w.resolveOutcome(task, nil, invokeErr)

		if out.disposition != ackTask {
			t.Fatalf("disposition = %s, want ack", out.disposition)
		}
		failed, ok := out.event.(*api.ActivityFailed)
		if !ok {
			t.Fatalf("event = %T, want *api.ActivityFailed", out.event)
		}
		if failed.Message != handlerErr.Error() {
			t.Errorf("Message = %q", failed.Message)
		}
		if len(failed.SerializedCause) == 0 {
			t.Error("SerializedCause is empty")
		}
		if failed.Details != nil {
			t.Error("Details must be unset under serialized propagation")
		}
	})

	t.Run("Details", func(t *testing.T) {
		w := newTestWorker(t)
		task := testTask()
		invokeErr := invokeFailing(t, api.PropagateDetails, handlerErr)

		out := w.resolveOutcome(task, nil, invokeErr)

		failed, ok := out.event.(*api.ActivityFailed)
		if !ok {
			t.Fatalf("event = %T, want *api.ActivityFailed", out.event)
		}
		if failed.Details == nil {
			t.Fatal("Details is nil")
		}
		if failed.Details.Message != handlerErr.Error() {
			t.Errorf("Details.Message = %q", failed.Details.Message)
		}
		if failed.SerializedCause != nil {
			t.Error("SerializedCause must be unset under details propagation")
		}
	})
}

func TestResolveOutcomeSignatureMismatch(t *testing.T) {
	w := newTestWorker(t)
	task := testTask()
	invokeErr := &activity.SignatureMismatchError{Got: 3}

	out := w.resolveOutcome(task, nil, invokeErr)

	if out.disposition != termTask {
		t.Fatalf("disposition = %s, want term", out.disposition)
	}
	failed, ok := out.event.(*api.ActivityFailed)
	if !ok {
		t.Fatalf("event = %T, want *api.ActivityFailed", out.event)
	}
	if failed.Message != invokeErr.Error() {
		t.Errorf("Message = %q", failed.Message)
	}
}

func TestResolveOutcomeAborting(t *testing.T) {
	w := newTestWorker(t)
	task := testTask()

	for name, err := range map[string]error{
		"AbortError":       activity.NewAbortError(errors.New("workflow cancelled")),
		"ContextCancelled": context.Canceled,
	} {
		t.Run(name, func(t *testing.T) {
			out := w.resolveOutcome(task, nil, err)

			if out.disposition != termTask {
				t.Fatalf("disposition = %s, want term", out.disposition)
			}
			if out.event != nil {
				t.Errorf("no event expected for aborted invocation, got %T", out.event)
			}
			if out.haltErr != nil {
				t.Errorf("abort must not halt the worker: %v", out.haltErr)
			}
		})
	}
}

func TestResolveOutcomeFatalHaltsWorker(t *testing.T) {
	w := newTestWorker(t)
	task := testTask()
	invokeErr := activity.NewFatalError(errors.New("out of file descriptors"))

	out := w.resolveOutcome(task, nil, invokeErr)

	if out.disposition != nakTask {
		t.Fatalf("disposition = %s, want nak", out.disposition)
	}
	if out.event != nil {
		t.Errorf("no event expected for fatal failure, got %T", out.event)
	}
	var procErr *TaskProcessingError
	if !errors.As(out.haltErr, &procErr) {
		t.Fatalf("haltErr = %v, want *TaskProcessingError", out.haltErr)
	}
	if procErr.ActivityName != task.ActivityName || procErr.WorkflowID != task.WorkflowID {
		t.Errorf("unexpected halt metadata: %+v", procErr)
	}
	if !errors.Is(out.haltErr, invokeErr) {
		t.Error("haltErr must wrap the fatal cause")
	}
}

func TestResolveOutcomeUnwrappedRecoverable(t *testing.T) {
	w := newTestWorker(t)
	task := testTask()

	out := w.resolveOutcome(task, nil, errors.New("bare error"))

	if out.disposition != ackTask {
		t.Fatalf("disposition = %s, want ack", out.disposition)
	}
	failed, ok := out.event.(*api.ActivityFailed)
	if !ok {
		t.Fatalf("event = %T, want *api.ActivityFailed", out.event)
	}
	if failed.SerializedCause != nil || failed.Details != nil {
		t.Error("message-only event expected for an unwrapped error")
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	for name, s := range map[string]serde.BinarySerde{
		"JSON":        &serde.JsonSerde{},
		"MessagePack": &serde.MsgpackSerde{},
	} {
		t.Run(name, func(t *testing.T) {
			w := newTestWorker(t)
			w.serde = s

			event := &api.ActivityCompleted{
				ID:           "wf-1",
				ActivityName: "orders.Reserve",
				Result:       []byte(`41`),
				Attempt:      1,
			}
			data, err := w.encodeEvent(event)
			if err != nil {
				t.Fatalf("encodeEvent: %v", err)
			}

			var record historyRecord
			if err := s.DeserializeBinary(data, &record); err != nil {
				t.Fatalf("failed to decode record: %v", err)
			}
			if record.Event != event.EventName() {
				t.Errorf("Event = %q, want %q", record.Event, event.EventName())
			}

			var decoded api.ActivityCompleted
			if err := s.DeserializeBinary(record.Data, &decoded); err != nil {
				t.Fatalf("failed to decode event body: %v", err)
			}
			if decoded.ActivityName != event.ActivityName || string(decoded.Result) != "41" {
				t.Errorf("decoded event mismatch: %+v", decoded)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	w := newTestWorker(t)
	act := activity.New(func(ctx context.Context, _ any) (string, error) {
		return "done", nil
	})

	if err := w.Register("orders.Reserve", act); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got, err := w.registry.get("orders.Reserve"); err != nil || got == nil {
		t.Fatalf("registry lookup failed: %v", err)
	}

	err := w.Register("orders.Reserve", act)
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("err = %v, want *RegistrationError", err)
	}
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Error("duplicate registration must wrap ErrDuplicateRegistration")
	}
}

func TestRegisterFunc(t *testing.T) {
	w := newTestWorker(t)

	err := RegisterFunc(w, "math.Double", func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})
	if err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}

	act, err := w.registry.get("math.Double")
	if err != nil {
		t.Fatalf("registry lookup: %v", err)
	}

	input, _ := w.serde.SerializeBinary([]any{21})
	out, err := act.Invoke(activity.NewContext(context.Background()), input)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(out) != "42" {
		t.Errorf("output = %s, want 42", out)
	}
}

func TestRegisterFuncDerivedName(t *testing.T) {
	w := newTestWorker(t)

	if err := RegisterFunc(w, "", sampleIncrement); err != nil {
		t.Fatalf("RegisterFunc: %v", err)
	}

	name, err := activity.Name(sampleIncrement)
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if _, err := w.registry.get(name); err != nil {
		t.Fatalf("activity not registered under derived name %q: %v", name, err)
	}
}

func sampleIncrement(ctx context.Context, n int) (int, error) {
	return n + 1, nil
}

func TestRegistryUnknownActivity(t *testing.T) {
	w := newTestWorker(t)
	_, err := w.registry.get("nope")
	if !errors.Is(err, ErrActivityNotRegistered) {
		t.Fatalf("err = %v, want ErrActivityNotRegistered", err)
	}
}
