package extraction

import (
	"errors"
	"fmt"
)

// ErrExtractionInProgress is returned when Extract is called while another
// extraction is still outstanding.
var ErrExtractionInProgress = errors.New("extraction already in progress")

// ValidationError reports input rejected before any network access.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports generator output that is not a usable
// payload. Raw holds the text after fence stripping.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed generator response: %s: %v", e.Reason, e.Err)
	}
	return "malformed generator response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
