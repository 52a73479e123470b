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
	"errors"

	"github.com/ngnhng/taskhost/activity"
	"github.com/ngnhng/taskhost/api"
)

// disposition is the JetStream settlement applied to a task message after
// its outcome is known.
type disposition int

const (
	// ackTask removes the task from the work queue.
	ackTask disposition = iota
	// nakTask requests redelivery, possibly to another worker.
	nakTask
	// termTask drops the task permanently without a result.
	termTask
)

func (d disposition) String() string {
	switch d {
	case nakTask:
		return "nak"
	case termTask:
		return "term"
	default:
		return "ack"
	}
}

// outcome is the full verdict on one invocation: the history event to
// publish (nil when the engine already knows, e.g. an abort it initiated),
// the message settlement, and an optional error that halts the worker.
type outcome struct {
	event       api.ActivityEvent
	disposition disposition

	// haltErr is set for fatal conditions. The task is settled first so
	// another worker can pick it up, then Run returns this error.
	haltErr error
}

// resolveOutcome maps the adapter's return values onto the history event
// and message settlement for one task.
//
//   - success: ActivityCompleted, ack
//   - wrapped recoverable failure: ActivityFailed, ack; the engine decides
//     whether to retry
//   - signature mismatch: ActivityFailed, term; redelivery cannot fix a
//     malformed argument list
//   - aborting: term with no event; the engine initiated the termination
//   - fatal: nak so the task survives, then halt the worker
func (w *Worker) resolveOutcome(task *api.ActivityTask, result []byte, invokeErr error) outcome {
	if invokeErr == nil {
		return outcome{
			event: &api.ActivityCompleted{
				ID:           api.WorkflowID(task.WorkflowID),
				ActivityName: task.ActivityName,
				Result:       result,
				Attempt:      task.Attempt,
			},
			disposition: ackTask,
		}
	}

	var sigErr *activity.SignatureMismatchError
	if errors.As(invokeErr, &sigErr) {
		return outcome{
			event:       w.failedEvent(task, invokeErr),
			disposition: termTask,
		}
	}

	var execErr *activity.ExecutionError
	if errors.As(invokeErr, &execErr) {
		failed := w.failedEvent(task, execErr)
		if cause, ok := execErr.SerializedCause(); ok {
			failed.SerializedCause = cause
		}
		if details, ok := execErr.Details(); ok {
			failed.Details = details
		}
		return outcome{event: failed, disposition: ackTask}
	}

	switch w.classifier.Classify(invokeErr) {
	case activity.Aborting:
		return outcome{disposition: termTask}
	case activity.Fatal:
		return outcome{
			disposition: nakTask,
			haltErr: &TaskProcessingError{
				ActivityName: task.ActivityName,
				WorkflowID:   task.WorkflowID,
				Cause:        invokeErr,
			},
		}
	default:
		// An unwrapped recoverable error means the adapter and worker
		// classifiers disagree. Report it message-only.
		return outcome{
			event:       w.failedEvent(task, invokeErr),
			disposition: ackTask,
		}
	}
}

func (w *Worker) failedEvent(task *api.ActivityTask, err error) *api.ActivityFailed {
	return &api.ActivityFailed{
		ID:           api.WorkflowID(task.WorkflowID),
		ActivityName: task.ActivityName,
		Message:      err.Error(),
		Attempt:      task.Attempt,
	}
}

// historyRecord is the envelope written to the history subject. The event
// payload is serialized separately so consumers can route on the name
// without decoding the body.
type historyRecord struct {
	Event string `json:"event" msgpack:"event"`
	Data  []byte `json:"data"  msgpack:"data"`
}

func (w *Worker) encodeEvent(event api.ActivityEvent) ([]byte, error) {
	data, err := w.serde.SerializeBinary(event)
	if err != nil {
		return nil, err
	}
	return w.serde.SerializeBinary(historyRecord{
		Event: event.EventName(),
		Data:  data,
	})
}
