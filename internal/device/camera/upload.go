package camera

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"github.com/pkg/errors"

	"ecoquest/internal/device"
)

// maxFrameBytes caps a single uploaded frame
const maxFrameBytes = 8 << 20

// subscriberBuffer is how many frames a slow scanner may lag before frames are dropped
const subscriberBuffer = 2

// UploadDevice receives frames pushed by the browser. It feeds both the camera
// preview (latest frame) and any number of scanner subscriptions.
type UploadDevice struct {
	mu     sync.Mutex
	latest image.Image
	subs   map[*Subscription]struct{}
	closed bool
}

func NewUploadDevice() *UploadDevice {
	return &UploadDevice{subs: make(map[*Subscription]struct{})}
}

// Push publishes a frame
func (d *UploadDevice) Push(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.latest = img
	for sub := range d.subs {
		select {
		case sub.frames <- img:
		default:
			// scanner is busy decoding; it will pick up a later frame
		}
	}
}

// PushEncoded decodes a PNG or JPEG frame and publishes it
func (d *UploadDevice) PushEncoded(r io.Reader) error {
	img, _, err := image.Decode(io.LimitReader(r, maxFrameBytes))
	if err != nil {
		return errors.Wrap(err, "decode frame")
	}
	d.Push(img)
	return nil
}

// Open implements Device. Uploaded frames come from whatever camera the browser
// chose, so facing is ignored.
func (d *UploadDevice) Open(_ context.Context, _ Facing) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, device.ErrClosed
	}
	return &uploadStream{dev: d}, nil
}

// Subscribe returns a frame feed for a scanner
func (d *UploadDevice) Subscribe() (*Subscription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, device.ErrClosed
	}
	sub := &Subscription{dev: d, frames: make(chan image.Image, subscriberBuffer), done: make(chan struct{})}
	d.subs[sub] = struct{}{}
	return sub, nil
}

// Close stops accepting frames and ends every subscription
func (d *UploadDevice) Close() {
	d.mu.Lock()
	subs := d.subs
	d.subs = make(map[*Subscription]struct{})
	d.closed = true
	d.latest = nil
	d.mu.Unlock()

	for sub := range subs {
		sub.closeOnce.Do(func() { close(sub.done) })
	}
}

func (d *UploadDevice) unsubscribe(sub *Subscription) {
	d.mu.Lock()
	delete(d.subs, sub)
	d.mu.Unlock()
}

type uploadStream struct {
	mu     sync.Mutex
	dev    *UploadDevice
	closed bool
}

func (s *uploadStream) Frame() (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, device.ErrClosed
	}

	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.dev.latest == nil {
		return nil, device.ErrNoFrame
	}
	return s.dev.latest, nil
}

func (s *uploadStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Subscription is a scanner's view of an UploadDevice
type Subscription struct {
	dev       *UploadDevice
	frames    chan image.Image
	done      chan struct{}
	closeOnce sync.Once
}

// NextImage blocks until a frame arrives, the subscription closes or ctx ends
func (s *Subscription) NextImage(ctx context.Context) (image.Image, error) {
	select {
	case img := <-s.frames:
		return img, nil
	case <-s.done:
		return nil, device.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the subscription; safe to call more than once
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.dev.unsubscribe(s)
	return nil
}
