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

// NATS Stream Names
const (
	ActivityTasksStream = "ACTIVITY_TASKS"
	HistoryStream       = "WORKFLOW_HISTORY"
)

// NATS Subject Prefix
const (
	HistorySubjectPrefix = "history"
)

// NATS Subject Format
const (
	HistoryPublishSubjectPattern = HistorySubjectPrefix + ".%s" // workflowID
)

// NATS Subject Patterns
const (
	HistoryFilterSubjectPattern = HistorySubjectPrefix + ".>"

	ActivityTasksFilterSubjectPattern = "activity.*.tasks"
)

// Consumer Names
const (
	ActivityTaskWorkerConsumer = "worker-activity-tasks"
)
