package camera

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"ecoquest/internal/device"
)

// DirDevice serves the newest PNG/JPEG in a directory as the current frame.
// Kiosks with a webcam daemon writing snapshots use it.
type DirDevice struct {
	Path string
}

// Open implements Device
func (d DirDevice) Open(_ context.Context, _ Facing) (Stream, error) {
	info, err := os.Stat(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open frame directory %s", d.Path)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", d.Path)
	}
	return &dirStream{path: d.Path}, nil
}

type dirStream struct {
	mu     sync.Mutex
	path   string
	closed bool
}

func (s *dirStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, device.ErrClosed
	}

	newest, err := newestImage(s.path)
	if err != nil {
		return nil, err
	}
	if newest == "" {
		return nil, device.ErrNoFrame
	}

	f, err := os.Open(newest)
	if err != nil {
		return nil, errors.Wrap(err, "open frame")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode frame %s", filepath.Base(newest))
	}
	return img, nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func newestImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, "read frame directory")
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = filepath.Join(dir, entry.Name()), mod
		}
	}
	return newest, nil
}
