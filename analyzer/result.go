package analyzer

import "reflect"

// Error messages returned by every operation.
const (
	MsgInvalidToken     = "Invalid token"
	MsgInvalidProjectID = "Invalid project ID"
)

// Result is the outcome of an analyzer operation: success flag, error message and
// payload. List and map payloads are never nil, so they encode as [] and {}.
type Result[T any] struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Payload T      `json:"payload"`
}

func success[T any](payload T) Result[T] {
	return Result[T]{OK: true, Payload: orEmpty(payload)}
}

// Failure returns a failed result carrying msg and an empty payload.
func Failure[T any](msg string) Result[T] {
	var zero T
	return Result[T]{Error: msg, Payload: orEmpty(zero)}
}

// orEmpty replaces a nil slice or map with an empty one.
func orEmpty[T any](v T) T {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
		}
	case reflect.Map:
		if rv.IsNil() {
			rv.Set(reflect.MakeMap(rv.Type()))
		}
	}
	return v
}
