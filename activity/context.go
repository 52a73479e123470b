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

	"github.com/ngnhng/taskhost/api"
)

// Context carries the engine-owned metadata of one invocation. It is
// constructed by the engine (or worker host) before dispatch and must not
// be mutated for the duration of the call.
type Context struct {
	context.Context

	ActivityName string
	WorkflowID   string
	InvocationID string
	Attempt      int

	// Propagation selects how recoverable failures are represented.
	Propagation api.PropagationMode
}

// NewContext returns an invocation context rooted at parent with the
// default propagation mode. Callers set metadata fields before dispatch.
func NewContext(parent context.Context) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{
		Context:     parent,
		Propagation: api.PropagateSerialized,
	}
}

// orBackground guards against callers handing the adapter a nil context.
func (c *Context) orBackground() *Context {
	if c == nil {
		return NewContext(context.Background())
	}
	if c.Context == nil {
		c2 := *c
		c2.Context = context.Background()
		return &c2
	}
	return c
}
