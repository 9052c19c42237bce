// Package mocaperr defines the error kinds shared by the gap-fill, kinetics
// and session packages.
//
// InputDimensionError, MissingDataError and UnsupportedConfigurationError are
// fatal and returned to the caller. InsufficientDataError describes a
// recoverable "nothing to do" outcome; the gap-fill strategies never return it
// as their error value but expose it on skipped results.
package mocaperr

import (
	"errors"
	"fmt"
)

// InputDimensionError reports an array whose shape does not match the
// expected frame or axis count.
type InputDimensionError struct {
	What string
	Got  int
	Want int
}

func (e *InputDimensionError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", e.What, e.Got, e.Want)
}

// MissingDataError reports a named marker, channel, plate or parameter that
// is absent from the source.
type MissingDataError struct {
	Kind string // "marker", "channel", "plate", "parameter"
	Name string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// InsufficientDataError reports that too few valid frames exist to perform
// an operation.
type InsufficientDataError struct {
	Subject string
	Reason  string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

// UnsupportedConfigurationError reports a configuration value the engines
// cannot handle, such as an unknown force-plate type.
type UnsupportedConfigurationError struct {
	What  string
	Value any
}

func (e *UnsupportedConfigurationError) Error() string {
	return fmt.Sprintf("unsupported %s: %v", e.What, e.Value)
}

// Dimension is shorthand for building an InputDimensionError.
func Dimension(what string, got, want int) error {
	return &InputDimensionError{What: what, Got: got, Want: want}
}

// Missing is shorthand for building a MissingDataError.
func Missing(kind, name string) error {
	return &MissingDataError{Kind: kind, Name: name}
}

// Unsupported is shorthand for building an UnsupportedConfigurationError.
func Unsupported(what string, value any) error {
	return &UnsupportedConfigurationError{What: what, Value: value}
}

// IsInputDimension reports whether err wraps an InputDimensionError.
func IsInputDimension(err error) bool {
	var target *InputDimensionError
	return errors.As(err, &target)
}

// IsMissing reports whether err wraps a MissingDataError.
func IsMissing(err error) bool {
	var target *MissingDataError
	return errors.As(err, &target)
}

// IsInsufficient reports whether err wraps an InsufficientDataError.
func IsInsufficient(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsUnsupported reports whether err wraps an UnsupportedConfigurationError.
func IsUnsupported(err error) bool {
	var target *UnsupportedConfigurationError
	return errors.As(err, &target)
}
