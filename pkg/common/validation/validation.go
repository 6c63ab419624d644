// Package validation provides common validation utilities for the pipeflow library.
package validation

import (
	"math"
	"strings"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return pferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that a numeric value is non-negative (>= 0).
// NaN is rejected as well, since it compares false against every bound.
// Returns a ValidationError if the value is negative or NaN.
func ValidateNonNegative(module, field string, value float64) error {
	if math.IsNaN(value) {
		return pferrors.NewValidationError(module, field, value, "must be a number").
			WithHint("use 0 or a positive value")
	}
	if value < 0 {
		return pferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return pferrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return pferrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateOneOf validates that value is one of the allowed options.
// Returns a ValidationError listing the options otherwise.
func ValidateOneOf(module, field, value string, allowed ...string) error {
	for _, option := range allowed {
		if value == option {
			return nil
		}
	}
	return pferrors.NewValidationError(module, field, value, "unsupported value").
		WithHint("use one of: " + strings.Join(allowed, ", "))
}
