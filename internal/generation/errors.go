package generation

import "fmt"

// ConfigurationError reports a generator that cannot be built, such as a
// missing credential or an unknown provider.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("generation not configured: %s: %s", e.Field, e.Reason)
}

// ServiceError reports a rejected generation call: transport failure,
// non-2xx status, quota, or an empty candidate list.
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s generation failed", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
