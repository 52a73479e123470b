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

// FailureDetails is the structured, serializable description of one
// recoverable failure. It is built once while the failed error chain is
// still in hand and is immutable afterwards.
type FailureDetails struct {
	Message    string          `json:"message"          msgpack:"message"`
	Type       string          `json:"type"             msgpack:"type"`
	StackTrace string          `json:"stack,omitempty"  msgpack:"stack,omitempty"`
	Cause      *FailureDetails `json:"cause,omitempty"  msgpack:"cause,omitempty"`
}
