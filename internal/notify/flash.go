package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// FlashNamespace prefixes the client-state key holding pending toasts
const FlashNamespace = "ecoquest_flash"

const flashTTL = 5 * time.Minute

// StateStore is the key/value backend for flash messages
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// Flasher keeps toasts across a redirect, one queue per browser session
type Flasher struct {
	state StateStore
}

func NewFlasher(state StateStore) *Flasher {
	return &Flasher{state: state}
}

func flashKey(sessionID string) string {
	return FlashNamespace + ":" + sessionID
}

// Push queues a notice shown on the next rendered page
func (f *Flasher) Push(ctx context.Context, sessionID string, n Notice) error {
	queue := f.read(ctx, sessionID)
	queue = append(queue, n)
	data, err := json.Marshal(queue)
	if err != nil {
		return err
	}
	return f.state.Set(ctx, flashKey(sessionID), string(data), time.Now().Add(flashTTL))
}

// Pop returns and clears the queued notices
func (f *Flasher) Pop(ctx context.Context, sessionID string) []Notice {
	queue := f.read(ctx, sessionID)
	if len(queue) == 0 {
		return nil
	}
	if err := f.state.Delete(ctx, flashKey(sessionID)); err != nil {
		log.Printf("Error clearing flash messages: %v", err)
	}
	return queue
}

func (f *Flasher) read(ctx context.Context, sessionID string) []Notice {
	raw, found, err := f.state.Get(ctx, flashKey(sessionID))
	if err != nil {
		log.Printf("Error reading flash messages: %v", err)
		return nil
	}
	if !found {
		return nil
	}
	var queue []Notice
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil
	}
	return queue
}
