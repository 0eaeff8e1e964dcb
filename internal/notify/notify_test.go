package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ecoquest/internal/api"
	"ecoquest/internal/device"
	"ecoquest/internal/validation"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		expected bool
	}{
		{name: "validation", err: validation.New("Please fill name and scan ID."), want: "Please fill name and scan ID.", expected: true},
		{name: "api error verbatim", err: &api.APIError{Status: 401, Message: "Invalid password"}, want: "Invalid password", expected: true},
		{name: "wrapped api error", err: fmt.Errorf("approve: %w", &api.APIError{Status: 404, Message: "Submission not found"}), want: "Submission not found", expected: true},
		{name: "network", err: &api.NetworkError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, want: NetworkMessage, expected: true},
		{name: "device", err: &device.DeviceError{Device: "camera", Op: "capture", Err: device.ErrNoFrame}, want: "The camera has not sent a picture yet. Allow camera access and try again.", expected: true},
		{name: "unexpected", err: errors.New("nil pointer somewhere"), want: GenericMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := FromError(tt.err)
			assert.Equal(t, KindError, n.Kind)
			assert.Equal(t, tt.want, n.Message)
			assert.Equal(t, tt.expected, Expected(tt.err))
		})
	}
}

type memoryState map[string]string

func (m memoryState) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memoryState) Set(_ context.Context, key, value string, _ time.Time) error {
	m[key] = value
	return nil
}

func (m memoryState) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestFlasherPushPop(t *testing.T) {
	ctx := context.Background()
	f := NewFlasher(memoryState{})

	assert.Nil(t, f.Pop(ctx, "s1"))

	assert.NoError(t, f.Push(ctx, "s1", Success("Student added")))
	assert.NoError(t, f.Push(ctx, "s1", Info("Refreshing")))
	assert.NoError(t, f.Push(ctx, "s2", Error("other session")))

	assert.Equal(t, []Notice{Success("Student added"), Info("Refreshing")}, f.Pop(ctx, "s1"))
	assert.Nil(t, f.Pop(ctx, "s1"), "Pop must clear the queue")
	assert.Len(t, f.Pop(ctx, "s2"), 1)
}
