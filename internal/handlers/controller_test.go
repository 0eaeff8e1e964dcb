package handlers

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/device/camera"
	"ecoquest/internal/logging"
	"ecoquest/internal/mission"
	"ecoquest/internal/models"
)

type fixedDecoder struct {
	text string
}

func (d fixedDecoder) Decode(image.Image) (string, error) {
	return d.text, nil
}

func newTestControllers() *Controllers {
	return NewControllers(fixedDecoder{text: "ECO-1234ABCD"}, time.Minute, time.Minute, logging.Nop{})
}

func TestInstallReplacesPreviousController(t *testing.T) {
	cs := newTestControllers()

	first := cs.Install("sid")
	first.ObservePoints(120)
	second := cs.Install("sid")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Error(t, first.Context().Err(), "the replaced controller is disposed")
	assert.NoError(t, second.Context().Err())

	_, ok := cs.Get("sid", first.ID)
	assert.False(t, ok, "stale page ids no longer resolve")
	got, ok := cs.Get("sid", second.ID)
	require.True(t, ok)
	assert.Same(t, second, got)

	previous, decreased := second.ObservePoints(100)
	assert.Equal(t, 120, previous, "last seen points survive navigation")
	assert.True(t, decreased)
}

func TestObservePointsFirstVisit(t *testing.T) {
	c := newTestControllers().Install("sid")
	_, decreased := c.ObservePoints(0)
	assert.False(t, decreased)
	_, decreased = c.ObservePoints(10)
	assert.False(t, decreased)
}

func TestDisposeStopsDevicesAndFlow(t *testing.T) {
	cs := newTestControllers()
	c := cs.Install("sid")

	cam, dev := c.Camera()
	task := models.Task{ID: "t1", Title: "Tree Planting Hero", TaskType: models.TaskTypePhotoUpload, PointsReward: 100}
	flow, err := mission.New(task, "s1", mission.Deps{Camera: cam, Device: dev})
	require.NoError(t, err)
	c.SetFlow(flow)
	require.NoError(t, flow.(*mission.Photo).Begin(c.Context()))
	require.True(t, cam.Active())
	require.NoError(t, c.StartScanner(func(string) {}))

	assert.True(t, cs.Dispose("sid", c.ID))
	assert.False(t, cam.Active())
	assert.False(t, c.ScannerRunning())
	_, ok := c.Flow("t1")
	assert.False(t, ok)
	assert.Equal(t, 0, cs.Len())

	c.Dispose()
	assert.False(t, cs.Dispose("sid", c.ID))
}

func TestScannerEventsReachThePage(t *testing.T) {
	c := newTestControllers().Install("sid")
	decoded := make(chan string, 1)
	require.NoError(t, c.StartScanner(func(text string) {
		c.Emit(Event{Type: "scan", Text: text})
		select {
		case decoded <- text:
		default:
		}
	}))

	deadline := time.After(2 * time.Second)
	for {
		c.PushImage(image.NewGray(image.Rect(0, 0, 4, 4)))
		select {
		case text := <-decoded:
			assert.Equal(t, "ECO-1234ABCD", text)
			events := c.Drain()
			require.NotEmpty(t, events)
			assert.Equal(t, "scan", events[0].Type)
			assert.Empty(t, c.Drain())
			c.Dispose()
			return
		case <-deadline:
			t.Fatal("scanner never decoded a frame")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEmitCapsQueue(t *testing.T) {
	c := newTestControllers().Install("sid")
	for i := 0; i < maxQueuedEvents+5; i++ {
		c.Emit(Event{Type: "notice", Message: "n"})
	}
	assert.Len(t, c.Drain(), maxQueuedEvents)

	c.Dispose()
	c.Emit(Event{Type: "notice"})
	assert.Empty(t, c.Drain())
}

func TestReapDisposesIdleControllers(t *testing.T) {
	cs := newTestControllers()
	idle := cs.Install("idle")
	fresh := cs.Install("fresh")

	assert.Equal(t, 0, cs.Reap(time.Now()))
	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-2 * time.Minute)
	idle.mu.Unlock()

	assert.Equal(t, 1, cs.Reap(time.Now()))
	assert.Error(t, idle.Context().Err())
	assert.NoError(t, fresh.Context().Err())

	cs.DisposeAll()
	assert.Error(t, fresh.Context().Err())
	assert.Equal(t, 0, cs.Len())
}

func TestCameraDirPreview(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "snap.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	require.NoError(t, f.Close())

	cs := newTestControllers()
	cs.UseCameraDir(dir)
	c := cs.Install("sid")
	defer c.Dispose()

	cam, dev := c.Camera()
	assert.IsType(t, camera.DirDevice{}, dev)
	require.NoError(t, cam.StartPreview(context.Background(), dev))
	still, err := cam.Capture()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), still.Bounds())
}
