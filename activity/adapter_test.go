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

package activity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ngnhng/taskhost/activity"
	"github.com/ngnhng/taskhost/api"
	"github.com/ngnhng/taskhost/api/serde"
)

type orderInput struct {
	ID    string `json:"id" msgpack:"id"`
	Total int    `json:"total" msgpack:"total"`
}

func encodeArgs(t *testing.T, s serde.BinarySerde, args ...any) []byte {
	t.Helper()
	data, err := s.SerializeBinary(args)
	if err != nil {
		t.Fatalf("encode args: %v", err)
	}
	return data
}

func TestInvokeNoArguments(t *testing.T) {
	act := activity.New(func(ctx context.Context, _ string) (int, error) {
		return 42, nil
	})

	for _, input := range [][]byte{nil, encodeArgs(t, serde.Default())} {
		out, err := act.Invoke(activity.NewContext(context.Background()), input)
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if got := string(out); got != "42" {
			t.Errorf("output mismatch: got %s, want 42", got)
		}
	}
}

func TestInvokeSingleArgument(t *testing.T) {
	var received int
	act := activity.New(func(ctx context.Context, n int) (int, error) {
		received = n
		return n * 2, nil
	})

	out, err := act.Invoke(activity.NewContext(context.Background()), encodeArgs(t, serde.Default(), 5))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if received != 5 {
		t.Errorf("handler received %d, want 5", received)
	}
	if got := string(out); got != "10" {
		t.Errorf("output mismatch: got %s, want 10", got)
	}
}

func TestInvokeStructArgument(t *testing.T) {
	act := activity.New(func(ctx context.Context, in orderInput) (string, error) {
		return in.ID, nil
	})

	out, err := act.Invoke(
		activity.NewContext(context.Background()),
		encodeArgs(t, serde.Default(), orderInput{ID: "ord-1", Total: 30}),
	)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := string(out); got != `"ord-1"` {
		t.Errorf("output mismatch: got %s", got)
	}
}

func TestInvokeZeroValueForEmptyList(t *testing.T) {
	var received orderInput
	act := activity.New(func(ctx context.Context, in orderInput) (bool, error) {
		received = in
		return true, nil
	})

	if _, err := act.Invoke(activity.NewContext(context.Background()), nil); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if received != (orderInput{}) {
		t.Errorf("expected zero value input, got %+v", received)
	}
}

func TestInvokeInterfaceInput(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
		want  any
	}{
		{"NilPayload", nil, nil},
		{"EmptyList", encodeArgs(t, serde.Default()), nil},
		{"NullElement", encodeArgs(t, serde.Default(), nil), nil},
		{"ScalarElement", encodeArgs(t, serde.Default(), "ord-3"), "ord-3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var received any
			act := activity.New(func(ctx context.Context, in any) (int, error) {
				received = in
				return 42, nil
			})

			out, err := act.Invoke(activity.NewContext(context.Background()), tc.input)
			if err != nil {
				t.Fatalf("Invoke failed: %v", err)
			}
			if received != tc.want {
				t.Errorf("handler received %v, want %v", received, tc.want)
			}
			if got := string(out); got != "42" {
				t.Errorf("output mismatch: got %s, want 42", got)
			}
		})
	}
}

func TestInvokeSignatureMismatch(t *testing.T) {
	called := false
	act := activity.New(func(ctx context.Context, n int) (int, error) {
		called = true
		return n, nil
	})

	_, err := act.Invoke(activity.NewContext(context.Background()), encodeArgs(t, serde.Default(), 5, 6))
	var mismatch *activity.SignatureMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SignatureMismatchError, got %v", err)
	}
	if mismatch.Got != 2 {
		t.Errorf("Got mismatch: got %d, want 2", mismatch.Got)
	}
	if !strings.Contains(err.Error(), "signature mismatch") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if called {
		t.Error("handler must not run on signature mismatch")
	}

	// The wrapped failure path must never swallow the mismatch either.
	var wrapped *activity.ExecutionError
	if errors.As(err, &wrapped) {
		t.Error("signature mismatch must not be wrapped")
	}
}

func TestFatalPropagatesUnchanged(t *testing.T) {
	fatal := activity.NewFatalError(errors.New("host out of file descriptors"))
	act := activity.New(func(ctx context.Context, _ int) (int, error) {
		return 0, fatal
	})

	_, err := act.Invoke(activity.NewContext(context.Background()), nil)
	if !errors.Is(err, fatal) {
		t.Fatalf("fatal error identity lost: got %v", err)
	}
	var wrapped *activity.ExecutionError
	if errors.As(err, &wrapped) {
		t.Error("fatal error must not be wrapped")
	}
}

func TestAbortPropagatesUnchanged(t *testing.T) {
	abort := activity.NewAbortError(errors.New("invocation terminated by engine"))
	act := activity.New(func(ctx context.Context, _ int) (int, error) {
		return 0, abort
	})

	_, err := act.Invoke(activity.NewContext(context.Background()), nil)
	if !errors.Is(err, abort) {
		t.Fatalf("abort error identity lost: got %v", err)
	}
}

func TestRecoverableWrappedPerMode(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name        string
		mode        api.PropagationMode
		wantDetails bool
	}{
		{"StructuredDetails", api.PropagateDetails, true},
		{"SerializedCause", api.PropagateSerialized, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			act := activity.New(func(ctx context.Context, _ int) (int, error) {
				return 0, boom
			})

			ctx := activity.NewContext(context.Background())
			ctx.Propagation = tc.mode

			_, err := act.Invoke(ctx, nil)
			var wrapped *activity.ExecutionError
			if !errors.As(err, &wrapped) {
				t.Fatalf("expected ExecutionError, got %v", err)
			}
			if wrapped.Message != "boom" {
				t.Errorf("message mismatch: got %q, want %q", wrapped.Message, "boom")
			}
			if !errors.Is(err, boom) {
				t.Error("original cause must be retained")
			}

			details, hasDetails := wrapped.Details()
			cause, hasCause := wrapped.SerializedCause()
			if hasDetails == hasCause {
				t.Fatalf("details and serialized cause must be mutually exclusive: details=%v cause=%v", hasDetails, hasCause)
			}
			if tc.wantDetails {
				if !hasDetails {
					t.Fatal("expected structured details")
				}
				if details.Message != "boom" {
					t.Errorf("details message mismatch: got %q", details.Message)
				}
				if details.StackTrace == "" {
					t.Error("details must carry a stack trace")
				}
			} else {
				if !hasCause {
					t.Fatal("expected serialized cause")
				}
				if len(cause) == 0 {
					t.Error("serialized cause must be non-empty")
				}
			}
		})
	}
}

func TestHandlerPanicIsRecoverable(t *testing.T) {
	act := activity.New(func(ctx context.Context, _ int) (int, error) {
		panic("kaboom")
	})

	ctx := activity.NewContext(context.Background())
	ctx.Propagation = api.PropagateDetails

	_, err := act.Invoke(ctx, nil)
	var wrapped *activity.ExecutionError
	if !errors.As(err, &wrapped) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	var pe *activity.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PanicError cause, got %v", err)
	}
	details, ok := wrapped.Details()
	if !ok || details.StackTrace == "" {
		t.Error("panic details must carry the handler stack")
	}
}

func TestAsyncHandlerSharedPipeline(t *testing.T) {
	act := activity.NewAsync(func(ctx context.Context, n int) *activity.Future[int] {
		fut := activity.NewFuture[int]()
		go func() {
			fut.Resolve(n + 1)
		}()
		return fut
	})

	out, err := act.Invoke(activity.NewContext(context.Background()), encodeArgs(t, serde.Default(), 41))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := string(out); got != "42" {
		t.Errorf("output mismatch: got %s, want 42", got)
	}
}

func TestAsyncCancellationAborts(t *testing.T) {
	act := activity.NewAsync(func(ctx context.Context, _ int) *activity.Future[int] {
		return activity.NewFuture[int]() // never settles
	})

	parent, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := act.Invoke(activity.NewContext(parent), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var wrapped *activity.ExecutionError
	if errors.As(err, &wrapped) {
		t.Error("cancellation must not be wrapped")
	}
}

func TestMsgpackAdapter(t *testing.T) {
	mp := &serde.MsgpackSerde{}
	act := activity.New(func(ctx context.Context, in orderInput) (int, error) {
		return in.Total, nil
	}, activity.WithSerde(mp))

	out, err := act.Invoke(
		activity.NewContext(context.Background()),
		encodeArgs(t, mp, orderInput{ID: "ord-2", Total: 7}),
	)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	var total int
	if err := mp.DeserializeBinary(out, &total); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if total != 7 {
		t.Errorf("output mismatch: got %d, want 7", total)
	}
}

func TestInjectedClassifier(t *testing.T) {
	sentinel := errors.New("always fatal here")
	cl := activity.ClassifierFunc(func(err error) activity.Classification {
		if errors.Is(err, sentinel) {
			return activity.Fatal
		}
		return activity.Recoverable
	})

	act := activity.New(func(ctx context.Context, _ int) (int, error) {
		return 0, sentinel
	}, activity.WithClassifier(cl))

	_, err := act.Invoke(activity.NewContext(context.Background()), nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("injected classifier ignored: got %v", err)
	}
}
