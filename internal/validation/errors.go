package validation

import "strings"

// FieldError is a problem with one input field
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is rejected user input; it never reaches the network
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// New creates a ValidationError with a user-facing message
func New(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// FieldMap indexes field messages by field name, for inline rendering
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, exists := m[f.Field]; !exists {
			m[f.Field] = f.Message
		}
	}
	return m
}

// Has reports whether field failed validation
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
