package vcr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("vcr: configuration error")

	// ErrUnknownCheckpoint is returned when restoring a checkpoint that
	// was never created or has already been discarded.
	ErrUnknownCheckpoint = errors.New("vcr: unknown checkpoint")

	// ErrDuplicateCheckpoint is returned when creating a checkpoint whose
	// name is already live.
	ErrDuplicateCheckpoint = errors.New("vcr: checkpoint already exists")

	// ErrConnectionNotAllowed is matched by *ConnectionNotAllowedError.
	ErrConnectionNotAllowed = errors.New("vcr: real HTTP connections are disabled")

	// ErrNoResponse is returned when a Transport reports neither a response
	// nor an error.
	ErrNoResponse = errors.New("vcr: transport returned no response")
)

// ConfigError reports invalid setup: unknown match attributes, conflicting
// URI attributes or misuse of checkpoint names.
type ConfigError struct {
	Msg string
	// Invalid lists the offending values, if any.
	Invalid []string
	// Err is an optional more specific sentinel, e.g. ErrUnknownCheckpoint.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "vcr: " + e.Msg
}

// Is reports whether target is ErrConfig or the wrapped sentinel.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig || (e.Err != nil && target == e.Err)
}

// Unwrap returns the wrapped sentinel, if any.
func (e *ConfigError) Unwrap() error { return e.Err }

func invalidAttributesError(invalid []string) *ConfigError {
	valid := make([]string, len(vocabulary))
	for i, a := range vocabulary {
		valid[i] = string(a)
	}
	return &ConfigError{
		Msg: fmt.Sprintf("the only valid match attributes are [%s]; you passed invalid attributes [%s]",
			strings.Join(valid, ", "), strings.Join(invalid, ", ")),
		Invalid: invalid,
	}
}

func conflictingAttributesError(names []string) *ConfigError {
	return &ConfigError{
		Msg:     "match attributes cannot include " + strings.Join(names, " and "),
		Invalid: names,
	}
}

// NetConnectNotAllowedPhrase appears in every ConnectionNotAllowedError
// message, so tests can assert on it.
const NetConnectNotAllowedPhrase = "You can use VCR to automatically record this request and replay it later"

// ConnectionNotAllowedError is returned when a request has no recorded
// interaction and real HTTP connections are disabled.
type ConnectionNotAllowedError struct {
	Request *Request
}

// Error implements the error interface.
func (e *ConnectionNotAllowedError) Error() string {
	target := "unknown request"
	if e.Request != nil {
		target = e.Request.String()
	}
	return fmt.Sprintf("Real HTTP connections are disabled. Unregistered request: %s. %s.", target, NetConnectNotAllowedPhrase)
}

// Is reports whether target is ErrConnectionNotAllowed.
func (e *ConnectionNotAllowedError) Is(target error) bool {
	return target == ErrConnectionNotAllowed
}
