package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Input errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRunID      = errors.New("invalid run id")
	ErrEmptyMeasurements = errors.New("run has no measurements")
	ErrNoPhases          = errors.New("run has no phases")
	ErrUnexpectedUnit    = errors.New("unexpected unit")

	// Registry errors
	ErrUnknownMetric   = errors.New("metric not present in registry")
	ErrInvalidRegistry = errors.New("invalid metric registry")

	// Comparison errors
	ErrNoComparisonData      = errors.New("could not determine comparison case")
	ErrUnsupportedComparison = errors.New("unsupported comparison")
	ErrTooManyGroups         = errors.New("between-group statistics need exactly two groups")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewUnknownMetricError(metric string) error {
	return fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
}

func NewUnexpectedUnitError(want, got string) error {
	return fmt.Errorf("%w: want %s, got %q", ErrUnexpectedUnit, want, got)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidRunID) ||
		errors.Is(err, ErrUnexpectedUnit) ||
		errors.Is(err, ErrUnsupportedComparison) ||
		errors.Is(err, ErrTooManyGroups)
}
