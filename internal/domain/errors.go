package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// NonFieldErrors is the key used for errors not tied to a single field.
const NonFieldErrors = "__all__"

type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func FieldError(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

func (v *ValidationError) Add(field, message string) {
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns nil when no field failed so callers can return it directly.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(v.Fields[k], "; ")
		if k == NonFieldErrors {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, k+": "+msg)
	}
	return strings.Join(parts, ", ")
}

func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
