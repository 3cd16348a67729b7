// Package quotes provides a WebSocket client for streaming last-price quotes
// used to mark open positions to market. Quotes are cached in memory; the
// metrics module reads the cache snapshot and never touches the socket.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/journal/internal/events"
)

const (
	// WebSocket connection constants
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	// Reconnection constants
	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10

	// Cache staleness threshold
	cacheStaleThreshold = 5 * time.Minute
)

// Quote is a single cached last price
type Quote struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// quoteMessage is the wire format for one quote update.
// Protocol: ["quotes", {"symbol": "...", "price": 123.45}]
type quoteMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// StreamClient maintains a WebSocket subscription for live quotes
type StreamClient struct {
	// Connection
	url        string
	conn       *websocket.Conn
	connCtx    context.Context    // Connection context (cancelled on disconnect)
	cancelFunc context.CancelFunc // For cancelling the connection context
	mu         sync.RWMutex

	// Instruments to subscribe on connect
	instrumentsMu sync.RWMutex
	instruments   []string

	// Dependencies
	eventManager *events.Manager
	log          zerolog.Logger

	// State
	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool

	// Cache (thread-safe)
	quoteCache map[string]Quote
	lastUpdate time.Time
	cacheMu    sync.RWMutex
}

// NewStreamClient creates a new quote stream client
func NewStreamClient(url string, eventManager *events.Manager, log zerolog.Logger) *StreamClient {
	return &StreamClient{
		url:          url,
		eventManager: eventManager,
		log:          log.With().Str("component", "quote_stream").Logger(),
		quoteCache:   make(map[string]Quote),
		stopChan:     make(chan struct{}),
	}
}

// SetInstruments replaces the subscription list. Takes effect on the next
// (re)connect; callers typically update it after a journal sync.
func (ws *StreamClient) SetInstruments(instruments []string) {
	ws.instrumentsMu.Lock()
	ws.instruments = append([]string(nil), instruments...)
	ws.instrumentsMu.Unlock()
}

// Start initializes the WebSocket connection and starts the read loop
func (ws *StreamClient) Start() error {
	if ws.url == "" {
		ws.log.Info().Msg("No quote stream URL configured, quote streaming disabled")
		return nil
	}

	ws.log.Info().Msg("Starting quote stream client")

	if err := ws.Connect(); err != nil {
		ws.log.Warn().Err(err).Msg("Initial quote stream connection failed, will retry in background")
		go ws.reconnectLoop()
		return err
	}

	ws.mu.RLock()
	ctx := ws.connCtx
	ws.mu.RUnlock()
	go ws.readMessages(ctx)

	ws.log.Info().Msg("Quote stream client started")
	return nil
}

// Stop gracefully shuts down the WebSocket connection
func (ws *StreamClient) Stop() error {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		return nil
	}
	ws.stopped = true
	ws.mu.Unlock()

	ws.log.Info().Msg("Stopping quote stream client")

	close(ws.stopChan)

	return ws.Disconnect()
}

// Connect establishes the WebSocket connection and subscribes to quotes
func (ws *StreamClient) Connect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.log.Info().Str("url", ws.url).Msg("Connecting to quote stream")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, ws.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial quote stream: %w", err)
	}

	// Long-lived context for the connection, cancelled on disconnect
	connCtx, connCancel := context.WithCancel(context.Background())
	ws.conn = conn
	ws.connCtx = connCtx
	ws.cancelFunc = connCancel
	ws.connected = true

	if err := ws.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		ws.conn = nil
		ws.connCtx = nil
		ws.cancelFunc = nil
		ws.connected = false
		return fmt.Errorf("failed to subscribe to quotes: %w", err)
	}

	ws.log.Info().Msg("Connected to quote stream")
	return nil
}

// Disconnect closes the WebSocket connection
func (ws *StreamClient) Disconnect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn == nil {
		return nil
	}

	ws.log.Info().Msg("Disconnecting from quote stream")

	// Cancel the connection context to unblock any pending Read operations
	if ws.cancelFunc != nil {
		ws.cancelFunc()
		ws.cancelFunc = nil
	}

	err := ws.conn.Close(websocket.StatusNormalClosure, "")

	ws.conn = nil
	ws.connCtx = nil
	ws.connected = false

	if err != nil {
		return fmt.Errorf("error closing quote stream: %w", err)
	}

	return nil
}

// subscribe sends the subscription message for the configured instruments.
// Protocol: ["subscribe", ["AAPL", "TSLA", ...]]
func (ws *StreamClient) subscribe(ctx context.Context) error {
	ws.instrumentsMu.RLock()
	instruments := append([]string(nil), ws.instruments...)
	ws.instrumentsMu.RUnlock()

	subscribeMsg := []interface{}{"subscribe", instruments}

	data, err := json.Marshal(subscribeMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := ws.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription message: %w", err)
	}

	ws.log.Info().Int("instruments", len(instruments)).Msg("Subscribed to quotes")
	return nil
}

// Resubscribe pushes the current instrument list down the live connection.
// No-op when disconnected; the next reconnect picks the list up anyway.
func (ws *StreamClient) Resubscribe() error {
	ws.mu.RLock()
	connected := ws.connected
	ctx := ws.connCtx
	ws.mu.RUnlock()

	if !connected || ctx == nil {
		return nil
	}
	return ws.subscribe(ctx)
}

// readMessages continuously reads messages from the WebSocket
func (ws *StreamClient) readMessages(ctx context.Context) {
	defer func() {
		ws.log.Info().Msg("Quote read loop stopped")
		ws.mu.RLock()
		stopped := ws.stopped
		ws.mu.RUnlock()
		if !stopped {
			go ws.reconnectLoop()
		}
	}()

	for {
		select {
		case <-ws.stopChan:
			return
		case <-ctx.Done():
			ws.log.Debug().Msg("Quote read loop context cancelled")
			return
		default:
		}

		ws.mu.RLock()
		conn := ws.conn
		ws.mu.RUnlock()

		if conn == nil {
			ws.log.Warn().Msg("Connection is nil, stopping quote read loop")
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				ws.log.Info().Int("status", int(closeStatus)).Msg("Quote stream closed normally")
			} else if ctx.Err() != nil {
				ws.log.Debug().Msg("Quote read cancelled by context")
			} else {
				ws.log.Error().Err(err).Msg("Unexpected quote stream read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			ws.log.Debug().Int("type", int(msgType)).Msg("Ignoring non-text message")
			continue
		}

		if err := ws.handleMessage(message); err != nil {
			ws.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle quote message")
			// Continue reading despite parse errors
		}
	}
}

// handleMessage parses and processes a quote stream message
func (ws *StreamClient) handleMessage(message []byte) error {
	// Protocol: ["event", data]
	var rawMessage []json.RawMessage
	if err := json.Unmarshal(message, &rawMessage); err != nil {
		return fmt.Errorf("failed to parse message array: %w", err)
	}

	if len(rawMessage) < 2 {
		return fmt.Errorf("message array too short: expected 2 elements, got %d", len(rawMessage))
	}

	var channel string
	if err := json.Unmarshal(rawMessage[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	if channel != "quotes" {
		ws.log.Debug().Str("channel", channel).Msg("Ignoring non-quotes message")
		return nil
	}

	var quote quoteMessage
	if err := json.Unmarshal(rawMessage[1], &quote); err != nil {
		return fmt.Errorf("failed to parse quote data: %w", err)
	}

	return ws.handleQuoteUpdate(quote)
}

// handleQuoteUpdate validates and caches a single quote update
func (ws *StreamClient) handleQuoteUpdate(msg quoteMessage) error {
	if msg.Symbol == "" {
		return fmt.Errorf("quote update missing symbol")
	}
	if msg.Price <= 0 || math.IsNaN(msg.Price) || math.IsInf(msg.Price, 0) {
		return fmt.Errorf("quote update for %s has invalid price %v", msg.Symbol, msg.Price)
	}

	now := time.Now()

	ws.cacheMu.Lock()
	ws.quoteCache[msg.Symbol] = Quote{
		Instrument: msg.Symbol,
		Price:      msg.Price,
		UpdatedAt:  now,
	}
	ws.lastUpdate = now
	ws.cacheMu.Unlock()

	ws.log.Debug().
		Str("instrument", msg.Symbol).
		Float64("price", msg.Price).
		Msg("Quote cache updated")

	if ws.eventManager != nil {
		ws.eventManager.Emit(events.QuoteUpdated, "quotes", map[string]interface{}{
			"instrument": msg.Symbol,
			"price":      msg.Price,
			"updated_at": now.Format(time.RFC3339),
		})
	}

	return nil
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (ws *StreamClient) reconnectLoop() {
	ws.mu.Lock()
	if ws.reconnecting || ws.stopped {
		ws.mu.Unlock()
		return
	}
	ws.reconnecting = true
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		ws.reconnecting = false
		ws.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-ws.stopChan:
			ws.log.Info().Msg("Reconnection loop stopped")
			return
		default:
		}

		ws.mu.RLock()
		stopped := ws.stopped
		ws.mu.RUnlock()
		if stopped {
			return
		}

		attempt++

		delay := ws.calculateBackoff(attempt)

		if attempt <= maxReconnectAttempts {
			ws.log.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Attempting to reconnect to quote stream")
		} else {
			ws.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Reconnection attempt (exceeded max attempts, will keep retrying)")
		}

		select {
		case <-time.After(delay):
		case <-ws.stopChan:
			return
		}

		if err := ws.Connect(); err != nil {
			ws.log.Error().Err(err).
				Int("attempt", attempt).
				Msg("Reconnection failed")
			continue
		}

		ws.log.Info().
			Int("attempt", attempt).
			Msg("Reconnected to quote stream")

		// Reset attempt counter on successful connection
		attempt = 0

		ws.mu.RLock()
		ctx := ws.connCtx
		ws.mu.RUnlock()
		go ws.readMessages(ctx)
		return
	}
}

// calculateBackoff calculates exponential backoff delay
func (ws *StreamClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))

	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}

	return time.Duration(delay)
}

// Snapshot returns instrument -> last price for all cached quotes (thread-safe)
func (ws *StreamClient) Snapshot() map[string]float64 {
	ws.cacheMu.RLock()
	defer ws.cacheMu.RUnlock()

	result := make(map[string]float64, len(ws.quoteCache))
	for instrument, quote := range ws.quoteCache {
		result[instrument] = quote.Price
	}

	return result
}

// GetQuote returns the cached quote for one instrument (thread-safe)
func (ws *StreamClient) GetQuote(instrument string) (*Quote, error) {
	ws.cacheMu.RLock()
	defer ws.cacheMu.RUnlock()

	quote, exists := ws.quoteCache[instrument]
	if !exists {
		return nil, fmt.Errorf("no cached quote for %s", instrument)
	}

	return &quote, nil
}

// IsCacheStale checks if the cache hasn't been updated recently
func (ws *StreamClient) IsCacheStale() bool {
	ws.cacheMu.RLock()
	defer ws.cacheMu.RUnlock()

	if ws.lastUpdate.IsZero() {
		return true
	}

	return time.Since(ws.lastUpdate) > cacheStaleThreshold
}

// IsConnected returns current connection status
func (ws *StreamClient) IsConnected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.connected
}
