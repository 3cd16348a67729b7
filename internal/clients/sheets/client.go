// Package sheets provides client functionality for fetching trade rows from
// a published spreadsheet (CSV export URL) and reshaping them into journal
// trades. All lenient parsing lives here, at the input boundary - the metrics
// engine never sees raw spreadsheet data.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// Client fetches trade rows from a remote spreadsheet CSV endpoint.
//
// Fetches are single-flight: starting a new fetch cancels the previous
// in-flight one, matching the dashboard's refresh semantics where only the
// latest result matters.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger

	mu         sync.Mutex
	cancelPrev context.CancelFunc
	fetchGen   uint64
}

// NewClient creates a new spreadsheet client
func NewClient(url string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		timeout: timeout,
		httpClient: &http.Client{
			// Overall deadline comes from the per-fetch context; the
			// transport-level timeout is a backstop.
			Timeout: timeout + 10*time.Second,
		},
		log: log.With().Str("client", "sheets").Logger(),
	}
}

// URL returns the configured spreadsheet URL
func (c *Client) URL() string {
	return c.url
}

// FetchTrades downloads the sheet and transforms its rows into trades.
// Rows that cannot be transformed (unknown side, unparseable entry date) are
// skipped with a warning rather than failing the whole fetch.
func (c *Client) FetchTrades(ctx context.Context) ([]domain.Trade, error) {
	if c.url == "" {
		return nil, fmt.Errorf("no spreadsheet URL configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)

	// Cancel any prior in-flight fetch; only the latest request survives
	c.mu.Lock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	c.cancelPrev = cancel
	c.fetchGen++
	gen := c.fetchGen
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		// Only clear the slot if a newer fetch hasn't claimed it
		if c.fetchGen == gen {
			c.cancelPrev = nil
		}
		c.mu.Unlock()
	}()

	records, err := c.fetchRows(fetchCtx)
	if err != nil {
		return nil, err
	}

	trades := TransformRows(records, c.log)
	c.log.Info().
		Int("rows", len(records)).
		Int("trades", len(trades)).
		Msg("Sheet fetched")

	return trades, nil
}

// fetchRows performs the HTTP request and CSV decode
func (c *Client) fetchRows(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheet request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet fetch returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // Sheets pad short rows inconsistently
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet CSV: %w", err)
	}

	return records, nil
}
