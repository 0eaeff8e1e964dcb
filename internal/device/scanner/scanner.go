// Package scanner decodes QR and barcode ID cards from a frame source.
package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"ecoquest/internal/device"
)

// ErrNoCode is returned by a Decoder when a frame holds no readable code
var ErrNoCode = errors.New("no code found")

// Frame is one unit of scanner input. Text is set by sources that decode
// themselves (keyboard-wedge readers); otherwise Image is decoded.
type Frame struct {
	Image image.Image
	Text  string
}

// FrameSource produces frames until closed
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Decoder turns an image into the text of the code it contains
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// Scanner runs one decode loop at a time
type Scanner struct {
	decoder  Decoder
	debounce time.Duration
	now      func() time.Time

	mu  sync.Mutex
	cur *run
	err error
}

type run struct {
	cancel context.CancelFunc
	source FrameSource
	done   chan struct{}

	// stopped and dispatching are guarded by mu; onDecode never starts once stopped is set
	mu          sync.Mutex
	stopped     bool
	dispatching bool

	lastText string
	lastAt   time.Time
}

// New creates a scanner. The same text decoded again within debounce is dropped.
func New(decoder Decoder, debounce time.Duration) *Scanner {
	return &Scanner{decoder: decoder, debounce: debounce, now: time.Now}
}

// Start consumes source on a new goroutine and calls onDecode once per decoded
// code. A running scan is stopped first. The scanner takes ownership of source
// and may close it more than once.
func (s *Scanner) Start(ctx context.Context, source FrameSource, onDecode func(text string)) error {
	s.Stop()

	if opener, ok := source.(interface{ Open(context.Context) error }); ok {
		if err := opener.Open(ctx); err != nil {
			source.Close()
			return &device.DeviceError{Device: "scanner", Op: "open", Err: err}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, source: source, done: make(chan struct{})}

	s.mu.Lock()
	s.cur = r
	s.err = nil
	s.mu.Unlock()

	go s.loop(runCtx, r, onDecode)
	return nil
}

func (s *Scanner) loop(ctx context.Context, r *run, onDecode func(string)) {
	defer close(r.done)

	for {
		frame, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, device.ErrClosed) {
				log.Printf("Scanner stopped: %v", err)
				s.mu.Lock()
				s.err = &device.DeviceError{Device: "scanner", Op: "read", Err: err}
				s.mu.Unlock()
			}
			s.finish(r)
			return
		}

		text := frame.Text
		if text == "" && frame.Image != nil {
			text, err = s.decoder.Decode(frame.Image)
			if err != nil {
				continue
			}
		}
		if text == "" || s.duplicate(r, text) {
			continue
		}

		if !r.beginDispatch() {
			s.finish(r)
			return
		}
		onDecode(text)
		r.endDispatch()
	}
}

func (r *run) beginDispatch() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.dispatching = true
	return true
}

func (r *run) endDispatch() {
	r.mu.Lock()
	r.dispatching = false
	r.mu.Unlock()
}

// stop marks the run stopped and reports whether onDecode is in flight
func (r *run) stop() (dispatching bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return r.dispatching
}

func (s *Scanner) duplicate(r *run, text string) bool {
	now := s.now()
	if text == r.lastText && now.Sub(r.lastAt) < s.debounce {
		return true
	}
	r.lastText, r.lastAt = text, now
	return false
}

// finish releases a run that ended on its own; a stopped run was released by Stop
func (s *Scanner) finish(r *run) {
	s.mu.Lock()
	owned := s.cur == r
	if owned {
		s.cur = nil
	}
	s.mu.Unlock()

	if owned {
		r.cancel()
		r.source.Close()
	}
}

// Stop ends the current scan and releases its source. No onDecode call starts
// after Stop returns. Stop does not wait for a callback already in flight, so it
// may be called from inside onDecode. It is a no-op when nothing runs.
func (s *Scanner) Stop() {
	s.mu.Lock()
	r := s.cur
	s.cur = nil
	dispatching := r != nil && r.stop()
	s.mu.Unlock()

	if r == nil {
		return
	}
	r.cancel()
	r.source.Close()
	if !dispatching {
		<-r.done
	}
}

// Running reports whether a scan is active
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Err returns the read error that ended the last scan, if any
func (s *Scanner) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
