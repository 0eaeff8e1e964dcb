// Package device holds what the camera and scanner adapters share.
package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned when an operation needs an active stream
	ErrNotStarted = errors.New("device not started")
	// ErrNoFrame is returned when capture is requested before the first frame arrived
	ErrNoFrame = errors.New("no frame received yet")
	// ErrClosed is returned by sources read after Close
	ErrClosed = errors.New("device closed")
)

// DeviceError is a camera or scanner failure shown inline to the user
type DeviceError struct {
	Device string // "camera" or "scanner"
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown next to the disabled device section
func (e *DeviceError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrNoFrame):
		return "The camera has not sent a picture yet. Allow camera access and try again."
	case errors.Is(e.Err, ErrNotStarted), errors.Is(e.Err, ErrClosed):
		return "The camera is not running. Reload the page to start it again."
	}
	return fmt.Sprintf("The %s is unavailable. Check that it is connected and allowed.", e.Device)
}
