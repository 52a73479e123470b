package activity

import (
	"fmt"
	"reflect"
	"runtime"
)

// Name extracts a registration name from a handler function symbol,
// including its package path.
func Name(fn any) (string, error) {
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return "", fmt.Errorf("fn is not of function type")
	}
	fnObj := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if fnObj == nil {
		return "", fmt.Errorf("could not retrieve function metadata")
	}
	return fnObj.Name(), nil
}
