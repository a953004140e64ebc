package bridge

import "fmt"

// ArgumentError reports a problem binding or materializing a function argument.
type ArgumentError struct {
	// Param is the declared parameter name, or its position when unnamed.
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %s: %s", e.Param, e.Reason)
}

func argError(param, format string, args ...any) *ArgumentError {
	return &ArgumentError{Param: param, Reason: fmt.Sprintf(format, args...)}
}
