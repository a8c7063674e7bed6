package models

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
)

// SetClockForTest pins timeNow for the duration of the test.
func SetClockForTest(t testing.TB, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

type EventRecorder struct {
	mu     sync.Mutex
	events []config.EscrowEventMessage
}

func (r *EventRecorder) Events() []config.EscrowEventMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]config.EscrowEventMessage(nil), r.events...)
}

// RecordEventsForTest enables escrow events and captures them instead of
// publishing.
func RecordEventsForTest(t testing.TB) *EventRecorder {
	t.Helper()
	recorder := &EventRecorder{}
	prevEnabled, prevPublisher := escrowEventsEnabled, escrowEventPublisher
	escrowEventsEnabled = func() bool { return true }
	escrowEventPublisher = func(_ context.Context, msg config.EscrowEventMessage) (string, error) {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		recorder.events = append(recorder.events, msg)
		return "test", nil
	}
	t.Cleanup(func() {
		escrowEventsEnabled, escrowEventPublisher = prevEnabled, prevPublisher
	})
	return recorder
}

// RetakeIdempotencyKey reclaims existing as a retry that read it would.
func RetakeIdempotencyKey(ctx context.Context, existing IdempotencyKey) error {
	return retakeIdempotency(config.GetDB().WithContext(ctx), existing)
}
