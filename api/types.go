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

package api

type WorkflowID string

func (w WorkflowID) String() string { return string(w) }

// PropagationMode selects how a recoverable activity failure is carried
// back to the engine: as codec-serialized cause text, or as a structured
// FailureDetails record. The two representations are mutually exclusive.
type PropagationMode string

const (
	// PropagateSerialized is the historical default: the failure cause is
	// serialized with the configured codec and shipped as opaque text.
	PropagateSerialized PropagationMode = "serialized_cause"

	// PropagateDetails ships a structured FailureDetails record instead.
	PropagateDetails PropagationMode = "failure_details"
)

// OrDefault normalizes the zero value to PropagateSerialized so tasks
// produced by older engines keep their original behavior.
func (m PropagationMode) OrDefault() PropagationMode {
	if m == "" {
		return PropagateSerialized
	}
	return m
}

// ActivityTask is one invocation request produced by the engine.
//
// Input carries the codec-encoded argument list: an encoded array of zero
// or one values. Multi-argument lists are a leftover of an abandoned
// calling convention and are rejected at decode time.
type ActivityTask struct {
	WorkflowID   string          `json:"wf_id"    msgpack:"wf_id"`
	ActivityName string          `json:"ac_name"  msgpack:"ac_name"`
	Input        []byte          `json:"input"    msgpack:"input"`
	Attempt      int             `json:"attempt"  msgpack:"attempt"`
	Propagation  PropagationMode `json:"propagation,omitempty" msgpack:"propagation,omitempty"`
}

// ActivityEvent is the union of result events a worker publishes to the
// history subject after one invocation.
type ActivityEvent interface {
	EventName() string

	isActivityEvent()
}

var _ ActivityEvent = (*ActivityCompleted)(nil)
var _ ActivityEvent = (*ActivityFailed)(nil)

// -- Activity Completed Event --
type ActivityCompleted struct {
	ID WorkflowID `json:"id" msgpack:"id"`

	ActivityName string `json:"name"   msgpack:"name"`
	Result       []byte `json:"result" msgpack:"result"`
	Attempt      int    `json:"attempt" msgpack:"attempt"`
}

func (*ActivityCompleted) EventName() string { return "activity/completed" }
func (*ActivityCompleted) isActivityEvent()  {}

// -- Activity Failed Event --
//
// Exactly one of SerializedCause and Details is set, per the task's
// propagation mode.
type ActivityFailed struct {
	ID WorkflowID `json:"id" msgpack:"id"`

	ActivityName    string          `json:"name"    msgpack:"name"`
	Message         string          `json:"error"   msgpack:"error"`
	Attempt         int             `json:"attempt" msgpack:"attempt"`
	SerializedCause []byte          `json:"serialized_cause,omitempty" msgpack:"serialized_cause,omitempty"`
	Details         *FailureDetails `json:"details,omitempty"          msgpack:"details,omitempty"`
}

func (*ActivityFailed) EventName() string { return "activity/failed" }
func (*ActivityFailed) isActivityEvent()  {}
