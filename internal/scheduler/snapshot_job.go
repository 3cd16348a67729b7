package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/metrics"
)

// TradeLister reads the full journal
type TradeLister interface {
	List() ([]domain.Trade, error)
}

// SnapshotStore persists daily metric summaries
type SnapshotStore interface {
	Save(day string, summary metrics.Summary) error
	Prune(olderThan string) (int64, error)
}

// SnapshotJob computes the full metric summary and stores it under today's
// local day key, then prunes snapshots past the retention window.
type SnapshotJob struct {
	log       zerolog.Logger
	repo      TradeLister
	store     SnapshotStore
	retention int // Days of history to keep, <= 0 disables pruning
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(repo TradeLister, store SnapshotStore, retentionDays int, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		log:       log.With().Str("job", "snapshot").Logger(),
		repo:      repo,
		store:     store,
		retention: retentionDays,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "snapshot"
}

// Run computes and stores today's snapshot
func (j *SnapshotJob) Run() error {
	trades, err := j.repo.List()
	if err != nil {
		return fmt.Errorf("failed to load trades for snapshot: %w", err)
	}

	summary := metrics.Compute(trades)

	now := time.Now()
	day := now.Format("2006-01-02")
	if err := j.store.Save(day, summary); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	j.log.Info().
		Str("day", day).
		Int("trades", summary.TotalTrades).
		Float64("total_pnl", summary.TotalPnL).
		Msg("Snapshot stored")

	if j.retention > 0 {
		cutoff := now.AddDate(0, 0, -j.retention).Format("2006-01-02")
		if _, err := j.store.Prune(cutoff); err != nil {
			j.log.Error().Err(err).Msg("Snapshot pruning failed")
			// Non-critical, snapshot itself succeeded
		}
	}

	return nil
}
