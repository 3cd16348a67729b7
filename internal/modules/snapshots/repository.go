// Package snapshots persists daily metric summaries to the cache database.
// Each snapshot is the full computed summary for one local day, encoded as a
// msgpack blob so historical dashboards don't recompute over the whole
// journal. The cache is disposable: deleting cache.db only loses history
// granularity, never journal data.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/metrics"
)

// Snapshot is one stored daily summary
type Snapshot struct {
	Day       string          `json:"day"` // YYYY-MM-DD, local zone
	Summary   metrics.Summary `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository stores metric snapshots in the cache database
type Repository struct {
	cacheDB      *sql.DB
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(cacheDB *sql.DB, eventManager *events.Manager, log zerolog.Logger) *Repository {
	return &Repository{
		cacheDB:      cacheDB,
		eventManager: eventManager,
		log:          log.With().Str("repository", "snapshots").Logger(),
	}
}

// Save stores (or replaces) the summary for a day
func (r *Repository) Save(day string, summary metrics.Summary) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return fmt.Errorf("invalid snapshot day %q: %w", day, err)
	}

	payload, err := msgpack.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	now := time.Now().Unix()
	_, err = r.cacheDB.Exec(`
		INSERT INTO metric_snapshots (day, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at
	`, day, payload, now)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.log.Debug().Str("day", day).Int("bytes", len(payload)).Msg("Snapshot saved")

	if r.eventManager != nil {
		r.eventManager.Emit(events.SnapshotSaved, "snapshots", map[string]interface{}{
			"day": day,
		})
	}

	return nil
}

// Get returns the snapshot for a single day, nil when absent
func (r *Repository) Get(day string) (*Snapshot, error) {
	row := r.cacheDB.QueryRow(`
		SELECT day, payload, created_at FROM metric_snapshots WHERE day = ?
	`, day)

	snapshot, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Latest returns the most recent snapshot, nil when the cache is empty
func (r *Repository) Latest() (*Snapshot, error) {
	row := r.cacheDB.QueryRow(`
		SELECT day, payload, created_at FROM metric_snapshots ORDER BY day DESC LIMIT 1
	`)

	snapshot, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetRange returns snapshots with from <= day <= to, ascending by day.
// Day keys sort lexicographically, so string comparison is date comparison.
func (r *Repository) GetRange(from, to string) ([]Snapshot, error) {
	rows, err := r.cacheDB.Query(`
		SELECT day, payload, created_at FROM metric_snapshots
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, rows.Err()
}

// Prune deletes snapshots older than the given day, returning the count
func (r *Repository) Prune(olderThan string) (int64, error) {
	result, err := r.cacheDB.Exec(`DELETE FROM metric_snapshots WHERE day < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Str("older_than", olderThan).Msg("Pruned snapshots")
	}
	return deleted, nil
}

// Count returns the number of stored snapshots
func (r *Repository) Count() (int, error) {
	var count int
	err := r.cacheDB.QueryRow(`SELECT COUNT(*) FROM metric_snapshots`).Scan(&count)
	return count, err
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSnapshot decodes one row, including its msgpack payload
func scanSnapshot(s scanner) (*Snapshot, error) {
	var (
		day       string
		payload   []byte
		createdAt int64
	)
	if err := s.Scan(&day, &payload, &createdAt); err != nil {
		return nil, err
	}

	var summary metrics.Summary
	if err := msgpack.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", day, err)
	}

	return &Snapshot{
		Day:       day,
		Summary:   summary,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}
