package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by the proxy when no API key is set.
var ErrNotConfigured = errors.New("Anthropic API key not configured")

// StatusError is a provider or transport failure with the status to surface.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return fmt.Sprintf("%d: %s", e.Code, e.Message) }

// AsStatus unwraps err into a StatusError when it carries one.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
