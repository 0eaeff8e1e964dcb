// Package camera owns the preview stream and still capture of one page.
package camera

import (
	"context"
	"image"
	"image/draw"
	"sync"

	"ecoquest/internal/device"
)

// Facing selects the camera on devices that have more than one
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Stream is an open preview stream
type Stream interface {
	// Frame returns the most recent frame, or device.ErrNoFrame
	Frame() (image.Image, error)
	Close() error
}

// Device opens preview streams
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Camera manages at most one preview stream at a time
type Camera struct {
	mu     sync.Mutex
	stream Stream
}

func New() *Camera {
	return &Camera{}
}

// StartPreview opens a rear-facing stream on dev, closing any previous stream first
func (c *Camera) StartPreview(ctx context.Context, dev Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}

	stream, err := dev.Open(ctx, FacingEnvironment)
	if err != nil {
		return &device.DeviceError{Device: "camera", Op: "open", Err: err}
	}
	c.stream = stream
	return nil
}

// Active reports whether a preview stream is open
func (c *Camera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Capture copies the current frame at its native resolution
func (c *Camera) Capture() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil, &device.DeviceError{Device: "camera", Op: "capture", Err: device.ErrNotStarted}
	}

	frame, err := c.stream.Frame()
	if err != nil {
		return nil, &device.DeviceError{Device: "camera", Op: "capture", Err: err}
	}

	bounds := frame.Bounds()
	still := image.NewRGBA(bounds)
	draw.Draw(still, bounds, frame, bounds.Min, draw.Src)
	return still, nil
}

// Stop closes the stream. Calling it with no active stream is a no-op.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}
