package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/events"
)

// streamEvents runs the SSE handler until cancel fires and returns the body
func streamEvents(t *testing.T, bus *events.Bus, path string, publish func()) string {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewEventsStreamHandler(bus, log)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscriber to register before publishing
	require.Eventually(t, func() bool {
		return bus.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	publish()

	// Give the handler a moment to forward the events
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not exit on context cancel")
	}

	return rec.Body.String()
}

func TestEventsStream_ForwardsEvents(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)

	body := streamEvents(t, bus, "/api/events/stream", func() {
		bus.Publish(events.Event{
			Type:      events.TradesChanged,
			Timestamp: time.Now(),
			Module:    "journal",
			Data:      map[string]interface{}{"count": 3},
		})
	})

	assert.Contains(t, body, `"type":"connected"`)
	assert.Contains(t, body, `"TRADES_CHANGED"`)
	assert.Contains(t, body, `"module":"journal"`)
	assert.True(t, strings.HasPrefix(body, "data: "))
}

func TestEventsStream_TypeFilter(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)

	body := streamEvents(t, bus, "/api/events/stream?types=SNAPSHOT_SAVED", func() {
		bus.Publish(events.Event{Type: events.TradesChanged, Timestamp: time.Now(), Module: "journal"})
		bus.Publish(events.Event{Type: events.SnapshotSaved, Timestamp: time.Now(), Module: "snapshots"})
	})

	assert.NotContains(t, body, `"TRADES_CHANGED"`)
	assert.Contains(t, body, `"SNAPSHOT_SAVED"`)
}

func TestEventsStream_UnsubscribesOnDisconnect(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)

	streamEvents(t, bus, "/api/events/stream", func() {})

	assert.Equal(t, 0, bus.SubscriberCount())
}
