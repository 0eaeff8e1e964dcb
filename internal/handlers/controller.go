package handlers

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"ecoquest/internal/device/camera"
	"ecoquest/internal/device/scanner"
	"ecoquest/internal/logging"
	"ecoquest/internal/mission"
	"ecoquest/internal/notify"
	"ecoquest/internal/security"
)

// Event is pushed from a page controller to the browser through GET /device/events
type Event struct {
	Type     string `json:"type"` // "scan", "notice" or "redirect"
	Text     string `json:"text,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const maxQueuedEvents = 32

// Controller owns everything one page load holds: the frame upload device,
// the camera, the scanner and the active mission flow.
type Controller struct {
	// ID is the page id of the document last rendered for this controller.
	// It changes only through Controllers.Renew.
	ID        string
	SessionID string

	upload  *camera.UploadDevice
	preview camera.Device
	camera  *camera.Camera
	scanner *scanner.Scanner
	logger  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	flow     mission.Flow
	events   []Event
	lastSeen time.Time
	disposed bool
	// points last shown on the student dashboard, -1 when unknown
	lastPoints int
}

// Context is cancelled when the controller is disposed
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Camera returns the controller's camera and the device it previews
func (c *Controller) Camera() (*camera.Camera, camera.Device) {
	return c.camera, c.preview
}

// PushFrame feeds an encoded browser frame to the camera and scanner
func (c *Controller) PushFrame(r io.Reader) error {
	c.touch()
	return c.upload.PushEncoded(r)
}

// PushImage feeds a decoded frame
func (c *Controller) PushImage(img image.Image) {
	c.touch()
	c.upload.Push(img)
}

// StartScanner scans uploaded frames until StopScanner or Dispose
func (c *Controller) StartScanner(onDecode func(text string)) error {
	sub, err := c.upload.Subscribe()
	if err != nil {
		return err
	}
	return c.scanner.Start(c.ctx, scanner.FromImages(sub), onDecode)
}

func (c *Controller) StopScanner() {
	c.scanner.Stop()
}

func (c *Controller) ScannerRunning() bool {
	return c.scanner.Running()
}

// RestartScannerAfter restarts the scanner after delay unless the controller is gone by then
func (c *Controller) RestartScannerAfter(delay time.Duration, onDecode func(text string)) {
	time.AfterFunc(delay, func() {
		if c.ctx.Err() != nil {
			return
		}
		if err := c.StartScanner(onDecode); err != nil {
			c.logger.Warn("Error restarting scanner", err)
			c.Emit(Event{Type: "notice", Kind: string(notify.KindError), Message: notify.FromError(err).Message})
		}
	})
}

// SetFlow installs the mission flow of the page, closing the previous one
func (c *Controller) SetFlow(flow mission.Flow) {
	c.mu.Lock()
	prev := c.flow
	c.flow = flow
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// Flow returns the active flow when it belongs to taskID
func (c *Controller) Flow(taskID string) (mission.Flow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flow == nil || c.flow.Task().ID != taskID {
		return nil, false
	}
	return c.flow, true
}

// Emit queues an event for the browser. The oldest events are dropped when the page stops polling.
func (c *Controller) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.events = append(c.events, e)
	if len(c.events) > maxQueuedEvents {
		c.events = c.events[len(c.events)-maxQueuedEvents:]
	}
}

// EmitNotice queues a toast
func (c *Controller) EmitNotice(n notify.Notice) {
	c.Emit(Event{Type: "notice", Kind: string(n.Kind), Message: n.Message})
}

// Drain returns and clears queued events
func (c *Controller) Drain() []Event {
	c.touch()
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}

// ObservePoints records the balance shown to the student and reports whether it went down
func (c *Controller) ObservePoints(points int) (previous int, decreased bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous = c.lastPoints
	c.lastPoints = points
	return previous, previous >= 0 && points < previous
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Dispose stops the scanner, the flow and the camera. It is idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	flow := c.flow
	c.flow = nil
	c.events = nil
	c.mu.Unlock()

	c.cancel()
	c.scanner.Stop()
	if flow != nil {
		flow.Close()
	}
	if err := c.camera.Stop(); err != nil {
		c.logger.Warn("Error stopping camera", err)
	}
	c.upload.Close()
}

// Controllers keeps at most one page controller per browser session
type Controllers struct {
	decoder     scanner.Decoder
	debounce    time.Duration
	idleTimeout time.Duration
	logger      logging.Logger
	cameraDir   string

	mu        sync.Mutex
	bySession map[string]*Controller
}

func NewControllers(decoder scanner.Decoder, debounce, idleTimeout time.Duration, logger logging.Logger) *Controllers {
	return &Controllers{
		decoder:     decoder,
		debounce:    debounce,
		idleTimeout: idleTimeout,
		logger:      logger,
		bySession:   make(map[string]*Controller),
	}
}

// UseCameraDir makes photo missions preview the newest image in dir instead
// of browser uploads. Scanners keep reading uploaded frames.
func (cs *Controllers) UseCameraDir(dir string) {
	cs.mu.Lock()
	cs.cameraDir = dir
	cs.mu.Unlock()
}

// Install disposes the session's previous controller and returns a fresh one
func (cs *Controllers) Install(sessionID string) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	upload := camera.NewUploadDevice()
	c := &Controller{
		ID:         security.GenerateSessionID(),
		SessionID:  sessionID,
		upload:     upload,
		preview:    upload,
		camera:     camera.New(),
		scanner:    scanner.New(cs.decoder, cs.debounce),
		logger:     cs.logger,
		ctx:        ctx,
		cancel:     cancel,
		lastSeen:   time.Now(),
		lastPoints: -1,
	}

	cs.mu.Lock()
	if cs.cameraDir != "" {
		c.preview = camera.DirDevice{Path: cs.cameraDir}
	}
	prev := cs.bySession[sessionID]
	cs.bySession[sessionID] = c
	cs.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		c.lastPoints = prev.lastPoints
		prev.mu.Unlock()
		prev.Dispose()
	}
	return c
}

// Get returns the session's controller when pageID is empty or matches it
func (cs *Controllers) Get(sessionID, pageID string) (*Controller, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.bySession[sessionID]
	if !ok || (pageID != "" && c.ID != pageID) {
		return nil, false
	}
	return c, true
}

// Renew gives the live controller c a fresh page id and returns it. A form POST
// that re-renders the same controller calls it, so the unload beacon of the
// replaced document carries a stale id and is ignored.
func (cs *Controllers) Renew(c *Controller) (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.bySession[c.SessionID] != c {
		return "", false
	}
	c.ID = security.GenerateSessionID()
	return c.ID, true
}

// Dispose releases the session's controller when pageID is empty or matches it
func (cs *Controllers) Dispose(sessionID, pageID string) bool {
	cs.mu.Lock()
	c, ok := cs.bySession[sessionID]
	if !ok || (pageID != "" && c.ID != pageID) {
		cs.mu.Unlock()
		return false
	}
	delete(cs.bySession, sessionID)
	cs.mu.Unlock()

	c.Dispose()
	return true
}

// Len returns the number of live controllers
func (cs *Controllers) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.bySession)
}

// Reap disposes controllers idle for longer than the idle timeout
func (cs *Controllers) Reap(now time.Time) int {
	var stale []*Controller
	cs.mu.Lock()
	for id, c := range cs.bySession {
		if now.Sub(c.idleSince()) > cs.idleTimeout {
			stale = append(stale, c)
			delete(cs.bySession, id)
		}
	}
	cs.mu.Unlock()

	for _, c := range stale {
		c.Dispose()
	}
	return len(stale)
}

// Run reaps idle controllers every interval until ctx is done, then disposes all of them
func (cs *Controllers) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cs.DisposeAll()
			return
		case now := <-ticker.C:
			if n := cs.Reap(now); n > 0 {
				cs.logger.Info("Disposed idle page controllers", n)
			}
		}
	}
}

// DisposeAll releases every controller
func (cs *Controllers) DisposeAll() {
	cs.mu.Lock()
	all := cs.bySession
	cs.bySession = make(map[string]*Controller)
	cs.mu.Unlock()
	for _, c := range all {
		c.Dispose()
	}
}
