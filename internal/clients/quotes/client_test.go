package quotes

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/events"
)

func testClient() *StreamClient {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewStreamClient("ws://example.invalid/quotes", nil, log)
}

func TestHandleMessage_UpdatesCache(t *testing.T) {
	client := testClient()

	err := client.handleMessage([]byte(`["quotes", {"symbol": "AAPL", "price": 187.5}]`))
	require.NoError(t, err)

	quote, err := client.GetQuote("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.5, quote.Price)
	assert.False(t, client.IsCacheStale())
}

func TestHandleMessage_IgnoresOtherChannels(t *testing.T) {
	client := testClient()

	err := client.handleMessage([]byte(`["heartbeat", {"ts": 1}]`))
	require.NoError(t, err)
	assert.Empty(t, client.Snapshot())
}

func TestHandleMessage_Malformed(t *testing.T) {
	client := testClient()

	assert.Error(t, client.handleMessage([]byte(`not json`)))
	assert.Error(t, client.handleMessage([]byte(`["quotes"]`)))
	assert.Error(t, client.handleMessage([]byte(`["quotes", {"price": 10}]`)), "missing symbol")
	assert.Error(t, client.handleMessage([]byte(`["quotes", {"symbol": "X", "price": -1}]`)), "invalid price")
	assert.Empty(t, client.Snapshot())
}

func TestSnapshot_CopiesCache(t *testing.T) {
	client := testClient()
	require.NoError(t, client.handleMessage([]byte(`["quotes", {"symbol": "AAPL", "price": 100}]`)))
	require.NoError(t, client.handleMessage([]byte(`["quotes", {"symbol": "TSLA", "price": 200}]`)))

	snapshot := client.Snapshot()
	assert.Equal(t, map[string]float64{"AAPL": 100, "TSLA": 200}, snapshot)

	// Mutating the snapshot must not affect the cache
	snapshot["AAPL"] = 0
	quote, err := client.GetQuote("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.0, quote.Price)
}

func TestHandleQuoteUpdate_EmitsEvent(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	client := NewStreamClient("ws://example.invalid/quotes", manager, log)

	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	require.NoError(t, client.handleMessage([]byte(`["quotes", {"symbol": "NVDA", "price": 900}]`)))

	select {
	case event := <-ch:
		assert.Equal(t, events.QuoteUpdated, event.Type)
		assert.Equal(t, "NVDA", event.Data["instrument"])
		assert.Equal(t, 900.0, event.Data["price"])
	case <-time.After(time.Second):
		t.Fatal("expected a QuoteUpdated event")
	}
}

func TestIsCacheStale_Initially(t *testing.T) {
	assert.True(t, testClient().IsCacheStale())
}

func TestCalculateBackoff(t *testing.T) {
	client := testClient()

	assert.Equal(t, baseReconnectDelay, client.calculateBackoff(1))
	assert.Equal(t, 2*baseReconnectDelay, client.calculateBackoff(2))
	assert.Equal(t, maxReconnectDelay, client.calculateBackoff(20), "backoff is capped")
}
