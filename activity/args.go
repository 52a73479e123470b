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
	"reflect"

	"github.com/ngnhng/taskhost/api/serde"
)

// decodeSingleArg extracts the zero-or-one typed argument from a
// codec-encoded argument list.
//
//   - empty payload or empty list: zero value of the target type
//   - one element: scalars convert directly, structured values go through
//     the serde (both via TypeConverter)
//   - two or more elements: *SignatureMismatchError, unconditionally
func decodeSingleArg(input []byte, targetType reflect.Type, s serde.BinarySerde, conv *serde.TypeConverter) (reflect.Value, error) {
	if len(input) == 0 {
		return reflect.Zero(targetType), nil
	}

	var args []any
	if err := s.DeserializeBinary(input, &args); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to decode argument list: %w", err)
	}

	switch len(args) {
	case 0:
		return reflect.Zero(targetType), nil
	case 1:
		v, err := conv.ConvertToType(args[0], targetType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert input parameter: %w", err)
		}
		return v, nil
	default:
		return reflect.Value{}, &SignatureMismatchError{Got: len(args)}
	}
}
