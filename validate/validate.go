// Package validate holds the guard clauses applied at every package boundary.
// The guards return their input unchanged so they can be used inline.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrIllegalArgument is matched by every error raised in this package.
var ErrIllegalArgument = errors.New("illegal argument")

// ArgumentError reports a parameter that violated a guard.
type ArgumentError struct {
	parameter string
	message   string
}

func (e *ArgumentError) Error() string {
	return e.message
}

// Parameter is the name of the offending parameter.
func (e *ArgumentError) Parameter() string {
	return e.parameter
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrIllegalArgument
}

func nullError(parameterName string) error {
	return &ArgumentError{
		parameter: parameterName,
		message:   fmt.Sprintf("Parameter '%s' cannot be null.", parameterName),
	}
}

func blankError(parameterName string) error {
	return &ArgumentError{
		parameter: parameterName,
		message:   fmt.Sprintf("Parameter '%s' cannot be empty or blank.", parameterName),
	}
}

// NotNull fails when value is nil, including typed nil pointers, maps, slices,
// channels, funcs and interfaces.
func NotNull[T any](value T, parameterName string) (T, error) {
	if isNil(value) {
		return value, nullError(parameterName)
	}
	return value, nil
}

// NotZero fails when value is the zero value of its type.
// It reports the same message as NotNull, for value types whose zero value means absent.
func NotZero[T comparable](value T, parameterName string) (T, error) {
	var zero T
	if value == zero {
		return value, nullError(parameterName)
	}
	return value, nil
}

// NotEmptyOrBlank fails when value is empty or only whitespace.
func NotEmptyOrBlank(value, parameterName string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return value, blankError(parameterName)
	}
	return value, nil
}

// NotNullEmptyOrBlank applies NotNull and then NotEmptyOrBlank.
func NotNullEmptyOrBlank(value *string, parameterName string) (string, error) {
	if _, err := NotNull(value, parameterName); err != nil {
		return "", err
	}
	return NotEmptyOrBlank(*value, parameterName)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface,
		reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
