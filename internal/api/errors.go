package api

import "fmt"

// DefaultErrorMessage is used when an error response carries no readable detail
const DefaultErrorMessage = "API error"

// APIError is a non-2xx response from the EcoQuest API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NetworkError means no response was received: refused, timed out or cancelled
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
