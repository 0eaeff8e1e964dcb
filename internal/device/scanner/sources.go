package scanner

import (
	"bufio"
	"context"
	"image"
	"io"
	"strings"
	"sync"

	"ecoquest/internal/device"
)

// ImageFeed is a blocking stream of images, such as camera.Subscription
type ImageFeed interface {
	NextImage(ctx context.Context) (image.Image, error)
	Close() error
}

type imageSource struct {
	feed ImageFeed
}

// FromImages adapts an ImageFeed into a FrameSource
func FromImages(feed ImageFeed) FrameSource {
	return imageSource{feed: feed}
}

func (s imageSource) Next(ctx context.Context) (Frame, error) {
	img, err := s.feed.NextImage(ctx)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img}, nil
}

func (s imageSource) Close() error {
	return s.feed.Close()
}

// LineSource reads codes typed by a keyboard-wedge barcode reader, one per line
type LineSource struct {
	r         io.Reader
	lines     chan string
	errc      chan error
	startOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{
		r:     r,
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
}

func (s *LineSource) read() {
	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	s.errc <- err
}

// Next blocks until a line is read, the reader ends or ctx is done
func (s *LineSource) Next(ctx context.Context) (Frame, error) {
	s.startOnce.Do(func() { go s.read() })

	select {
	case line := <-s.lines:
		return Frame{Text: line}, nil
	case err := <-s.errc:
		s.errc <- err
		return Frame{}, err
	case <-s.done:
		return Frame{}, device.ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close stops delivering lines. The underlying reader is not closed.
func (s *LineSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
