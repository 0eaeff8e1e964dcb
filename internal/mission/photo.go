package mission

import (
	"context"
	"image"
	"sync"

	"ecoquest/internal/api"
	"ecoquest/internal/device/camera"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/validation"
)

// Camera is the subset of camera.Camera the photo flow drives
type Camera interface {
	StartPreview(ctx context.Context, dev camera.Device) error
	Capture() (*image.RGBA, error)
	Stop() error
}

// CameraDevice is the device the preview is opened on
type CameraDevice = camera.Device

// Photo is previewing -> captured -> submitting -> success. A failed
// submission goes back to captured and keeps the still.
// The captured still only backs the on-page thumbnail; the API receives the
// student and task ids alone.
type Photo struct {
	mu        sync.Mutex
	task      models.Task
	studentID string
	cam       Camera
	dev       CameraDevice
	logger    logging.Logger
	state     State
	still     *image.RGBA
	ack       *api.Ack
	lastErr   error
}

func NewPhoto(task models.Task, studentID string, cam Camera, dev CameraDevice, logger logging.Logger) (*Photo, error) {
	if task.TaskType != models.TaskTypePhotoUpload {
		return nil, ErrWrongTaskType
	}
	if cam == nil || dev == nil {
		return nil, ErrNoCamera
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Photo{task: task, studentID: studentID, cam: cam, dev: dev, logger: logger, state: StatePreviewing}, nil
}

func (p *Photo) Task() models.Task { return p.task }

func (p *Photo) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Still returns the captured image, nil until Capture succeeds
func (p *Photo) Still() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.still
}

func (p *Photo) Ack() *api.Ack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ack
}

func (p *Photo) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Begin starts the camera preview
func (p *Photo) Begin(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePreviewing {
		return nil
	}
	return p.cam.StartPreview(ctx, p.dev)
}

// Capture takes a still and stops the camera
func (p *Photo) Capture() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateSuccess:
		return alreadyComplete()
	case StateSubmitting:
		return inProgress()
	case StateCaptured:
		return validation.New("You already took a photo. Retake it or submit it.")
	}

	still, err := p.cam.Capture()
	if err != nil {
		return err
	}
	p.stopCamera()
	p.still = still
	p.state = StateCaptured
	return nil
}

// Retake discards the still and restarts the preview
func (p *Photo) Retake(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateSuccess:
		return alreadyComplete()
	case StateSubmitting:
		return inProgress()
	}

	p.still = nil
	p.lastErr = nil
	p.state = StatePreviewing
	return p.cam.StartPreview(ctx, p.dev)
}

// Submit records the completion. It needs a captured photo.
func (p *Photo) Submit(ctx context.Context, submitter PhotoSubmitter) (*api.Ack, error) {
	p.mu.Lock()
	switch p.state {
	case StateSuccess:
		p.mu.Unlock()
		return nil, alreadyComplete()
	case StateSubmitting:
		p.mu.Unlock()
		return nil, inProgress()
	case StatePreviewing:
		p.mu.Unlock()
		return nil, validation.New("Take a photo before submitting.")
	}
	p.state = StateSubmitting
	p.mu.Unlock()

	ack, err := submitter.SubmitPhoto(ctx, p.studentID, p.task.ID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateCaptured
		p.lastErr = err
		return nil, err
	}
	p.state = StateSuccess
	p.ack = ack
	p.lastErr = nil
	return ack, nil
}

// Close stops the camera
func (p *Photo) Close() {
	p.stopCamera()
}

func (p *Photo) stopCamera() {
	if err := p.cam.Stop(); err != nil {
		p.logger.Warn("Error stopping camera for task "+p.task.ID, err)
	}
}
