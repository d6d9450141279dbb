package ironcore

import "fmt"

// ConfigurationError reports a missing or unusable connection setting, an
// unreadable config source or an unsupported source type.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "ironcore config"
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
