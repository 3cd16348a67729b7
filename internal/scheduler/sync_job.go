package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
)

// TradeFetcher downloads the current trade rows from the remote sheet
type TradeFetcher interface {
	FetchTrades(ctx context.Context) ([]domain.Trade, error)
}

// TradeReplacer swaps the stored journal for a freshly fetched one
type TradeReplacer interface {
	ReplaceAll(trades []domain.Trade) error
}

// QuoteSubscriber keeps the quote stream's instrument list current
type QuoteSubscriber interface {
	SetInstruments(instruments []string)
	Resubscribe() error
}

// SyncStatus reports the outcome of the most recent sync cycle
type SyncStatus struct {
	Running        bool       `json:"running"`
	LastStarted    *time.Time `json:"last_started,omitempty"`
	LastCompleted  *time.Time `json:"last_completed,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastTradeCount int        `json:"last_trade_count"`
}

// SheetSyncJob pulls the spreadsheet and replaces the local journal with its
// contents. The sheet is the source of truth; local state is a cache of it.
type SheetSyncJob struct {
	log          zerolog.Logger
	fetcher      TradeFetcher
	repo         TradeReplacer
	quotes       QuoteSubscriber // Optional
	eventManager *events.Manager // Optional
	timeout      time.Duration

	mu sync.Mutex // Guards against overlapping runs

	statusMu sync.RWMutex
	status   SyncStatus
}

// SheetSyncConfig holds configuration for the sheet sync job
type SheetSyncConfig struct {
	Log          zerolog.Logger
	Fetcher      TradeFetcher
	Repo         TradeReplacer
	Quotes       QuoteSubscriber
	EventManager *events.Manager
	Timeout      time.Duration
}

// NewSheetSyncJob creates a new sheet sync job
func NewSheetSyncJob(cfg SheetSyncConfig) *SheetSyncJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SheetSyncJob{
		log:          cfg.Log.With().Str("job", "sheet_sync").Logger(),
		fetcher:      cfg.Fetcher,
		repo:         cfg.Repo,
		quotes:       cfg.Quotes,
		eventManager: cfg.EventManager,
		timeout:      timeout,
	}
}

// Name returns the job name
func (j *SheetSyncJob) Name() string {
	return "sheet_sync"
}

// Run executes one sync cycle
func (j *SheetSyncJob) Run() error {
	// Skip, don't queue, when a sync is already in flight
	if !j.mu.TryLock() {
		j.log.Warn().Msg("Sheet sync already running, skipping this cycle")
		return nil
	}
	defer j.mu.Unlock()

	j.log.Info().Msg("Starting sheet sync")
	startTime := time.Now()
	j.markStarted(startTime)
	j.emit(events.SheetSyncStarted, nil)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	trades, err := j.fetcher.FetchTrades(ctx)
	if err != nil {
		j.markFailed(err)
		j.emit(events.SheetSyncFailed, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("sheet fetch failed: %w", err)
	}

	if err := j.repo.ReplaceAll(trades); err != nil {
		j.markFailed(err)
		j.emit(events.SheetSyncFailed, map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("journal swap failed: %w", err)
	}

	j.updateQuoteSubscriptions(trades)

	duration := time.Since(startTime)
	j.markCompleted(len(trades))
	j.log.Info().
		Int("trades", len(trades)).
		Dur("duration", duration).
		Msg("Sheet sync completed")
	j.emit(events.SheetSyncComplete, map[string]interface{}{
		"trades":      len(trades),
		"duration_ms": duration.Milliseconds(),
	})

	return nil
}

// Status returns a copy of the current sync status
func (j *SheetSyncJob) Status() SyncStatus {
	j.statusMu.RLock()
	defer j.statusMu.RUnlock()
	return j.status
}

func (j *SheetSyncJob) markStarted(at time.Time) {
	j.statusMu.Lock()
	j.status.Running = true
	j.status.LastStarted = &at
	j.statusMu.Unlock()
}

func (j *SheetSyncJob) markFailed(err error) {
	j.statusMu.Lock()
	j.status.Running = false
	j.status.LastError = err.Error()
	j.statusMu.Unlock()
}

func (j *SheetSyncJob) markCompleted(tradeCount int) {
	now := time.Now()
	j.statusMu.Lock()
	j.status.Running = false
	j.status.LastError = ""
	j.status.LastCompleted = &now
	j.status.LastTradeCount = tradeCount
	j.statusMu.Unlock()
}

// updateQuoteSubscriptions points the quote stream at the instruments that
// currently have open positions. Non-critical.
func (j *SheetSyncJob) updateQuoteSubscriptions(trades []domain.Trade) {
	if j.quotes == nil {
		return
	}

	seen := make(map[string]struct{})
	var instruments []string
	for _, trade := range trades {
		if !trade.IsOpen() {
			continue
		}
		if _, ok := seen[trade.Instrument]; ok {
			continue
		}
		seen[trade.Instrument] = struct{}{}
		instruments = append(instruments, trade.Instrument)
	}

	j.quotes.SetInstruments(instruments)
	if err := j.quotes.Resubscribe(); err != nil {
		j.log.Error().Err(err).Msg("Failed to update quote subscriptions")
	}
}

// emit publishes a sync lifecycle event when an event manager is wired
func (j *SheetSyncJob) emit(eventType events.EventType, data map[string]interface{}) {
	if j.eventManager == nil {
		return
	}
	j.eventManager.Emit(eventType, "scheduler", data)
}
