package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMetric is returned when a query names a metric that does not exist.
	ErrUnknownMetric = errors.New("reconcile: unknown metric")
	// ErrInvalidArgument flags a caller contract violation such as a negative threshold.
	ErrInvalidArgument = errors.New("reconcile: invalid argument")
	// ErrMissingColumn is wrapped by SchemaError.
	ErrMissingColumn = errors.New("reconcile: missing required column")
)

// SchemaError reports a source table that lacks a required column.
type SchemaError struct {
	Table Table
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("reconcile: %s: missing required column %q", e.Table, e.Field)
}

func (e *SchemaError) Unwrap() error {
	return ErrMissingColumn
}

func unknownMetric(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
