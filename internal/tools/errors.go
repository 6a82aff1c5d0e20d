package tools

import "fmt"

// ArgumentError reports a tool argument that failed validation before
// the tool was called.
type ArgumentError struct {
	Tool   string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s argument %q: %s", e.Tool, e.Field, e.Reason)
}
