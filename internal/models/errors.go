package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apnedoctors/minirag/pkg/utils"
)

var (
	// ErrServiceUnavailable means the knowledge retriever is not ready.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrProcessing wraps any failure during retrieval or response assembly.
	ErrProcessing = errors.New("symptom processing failed")
	// ErrInitialization is fatal at startup.
	ErrInitialization = errors.New("initialization failed")
	// ErrStoreDisabled is returned when feedback persistence is switched off.
	ErrStoreDisabled = errors.New("feedback store disabled")
)

// ValidationError enumerates the request fields that failed validation.
type ValidationError struct {
	Fields []utils.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldNames lists the offending fields in report order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}
