package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks fatal run configuration problems.
// Match with errors.Is; use errors.As with *ConfigurationError for details.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a fatal problem with run inputs.
type ConfigurationError struct {
	Op    string // stage that detected the problem
	Field string // offending column or field
	Bar   int    // 0-based bar position, -1 when not bar specific
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Bar >= 0 {
		return fmt.Sprintf("%s: %s: field %q at bar %d: %s", ErrConfiguration, e.Op, e.Field, e.Bar, e.Msg)
	}
	return fmt.Sprintf("%s: %s: field %q: %s", ErrConfiguration, e.Op, e.Field, e.Msg)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
