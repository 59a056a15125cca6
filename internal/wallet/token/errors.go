package token

import "fmt"

// EncodingError reports a call that cannot be ABI encoded: unknown method,
// wrong number of arguments, wrong argument type or an out of range integer.
type EncodingError struct {
	Method string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("failed to encode %s: %s", e.Method, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func newEncodingError(method string, format string, args ...interface{}) *EncodingError {
	return &EncodingError{Method: method, Reason: fmt.Sprintf(format, args...)}
}
