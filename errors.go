package instruments

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoResourceFound is returned when discovery matches no instrument.
	ErrNoResourceFound = errors.New("no valid resource found")

	// ErrAmbiguousResource is returned when discovery matches more than one
	// instrument. Pick one manually and open it by its full resource name.
	ErrAmbiguousResource = errors.New("multiple resources found")
)

// ConfigurationError reports a request the instrument must not receive: an
// invalid channel id, an unknown measurement or a value beyond a channel's
// hard limit.
type ConfigurationError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

func configErr(param string, value interface{}, format string, args ...interface{}) error {
	return &ConfigurationError{Param: param, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
