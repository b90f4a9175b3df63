// Package errortype is the registry of coded failure categories.
//
// Types are defined once as package level values with Define and are
// immutable afterwards. A raised failure is an *Error tagged with its Type so
// callers can dispatch on the code and still print a readable message.
package errortype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Type is a coded failure category with a message template.
type Type struct {
	code     string
	template string
}

// Code is the namespaced identifier, for example NILS-250.
func (t Type) Code() string {
	return t.code
}

// Template is the fmt style message template.
func (t Type) Template() string {
	return t.template
}

// Format renders the template with args. Without args the template is returned as is.
func (t Type) Format(args ...any) string {
	if len(args) == 0 {
		return t.template
	}
	return fmt.Sprintf(t.template, args...)
}

// New raises a failure of this type.
func (t Type) New(args ...any) *Error {
	return &Error{errType: t, message: t.Format(args...)}
}

// Wrap raises a failure of this type caused by cause.
func (t Type) Wrap(cause error, args ...any) *Error {
	return &Error{errType: t, message: t.Format(args...), cause: cause}
}

// Error lets a Type be used as an errors.Is target.
func (t Type) Error() string {
	return t.code
}

// Error is a raised failure tagged with a Type.
type Error struct {
	errType Type
	message string
	cause   error
}

func (e *Error) Error() string {
	return e.errType.code + ": " + e.message
}

// Type returns the category this failure was raised with.
func (e *Error) Type() Type {
	return e.errType
}

// Code is shorthand for Type().Code().
func (e *Error) Code() string {
	return e.errType.code
}

// Message is the formatted message without the code prefix.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error or a Type carrying the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Type:
		return t.code == e.errType.code
	case *Error:
		return t != nil && t.errType.code == e.errType.code
	default:
		return false
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

//nolint:gochecknoglobals // registry is filled by package level Define calls
var (
	registryMu sync.RWMutex
	registry   = map[string]Type{}
)

// Define registers a new type. It panics when code is empty or already taken,
// both being programming errors caught at init time.
func Define(code, template string) Type {
	if code == "" {
		panic("errortype: empty code")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[code]; ok {
		panic(fmt.Sprintf("errortype: code %s already defined with template %q", code, existing.template))
	}

	t := Type{code: code, template: template}
	registry[code] = t
	return t
}

// Lookup finds a defined type by code.
func Lookup(code string) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[code]
	return t, ok
}

// Codes lists every defined code in sorted order.
func Codes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
