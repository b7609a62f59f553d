package builder

import "fmt"

// ConfigurationError reports an input the builder cannot build a graph from.
// It is fatal for the build.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid graph configuration: %s: %v", e.Message, e.Err)
	}
	return "invalid graph configuration: " + e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
