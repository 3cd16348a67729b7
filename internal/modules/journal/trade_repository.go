// Package journal provides the trade store: persistence and change
// notification for journal entries. The metrics engine consumes the read
// result and never touches storage itself.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
)

// tradesColumns is the list of columns for the trades table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match scanTrade() expectations.
const tradesColumns = `id, date, exit_date, instrument, side, entry_price, exit_price, quantity,
	stop_loss, take_profit, risk_amount, risk_percent, strategy, notes, tags,
	entry_reason, exit_reason`

// TradeRepository handles trade database operations on journal.db.
// Every mutation emits a TradesChanged event so listeners (SSE stream,
// snapshot job) can recompute derived state.
type TradeRepository struct {
	journalDB    *sql.DB
	eventManager *events.Manager // optional; nil disables notifications
	log          zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(journalDB *sql.DB, eventManager *events.Manager, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		journalDB:    journalDB,
		eventManager: eventManager,
		log:          log.With().Str("repo", "trades").Logger(),
	}
}

// Create inserts a new trade record. A UUID is assigned when the trade
// carries no ID. The trade is validated before insertion to prevent
// constraint violations and to keep unknown sides out of the store.
func (r *TradeRepository) Create(trade domain.Trade) (domain.Trade, error) {
	if err := trade.Validate(); err != nil {
		return domain.Trade{}, fmt.Errorf("failed to create trade: %w", err)
	}

	if strings.TrimSpace(trade.ID) == "" {
		trade.ID = uuid.New().String()
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO trades
		(id, date, exit_date, instrument, side, entry_price, exit_price, quantity,
		 stop_loss, take_profit, risk_amount, risk_percent, strategy, notes, tags,
		 entry_reason, exit_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.journalDB.Exec(query, insertArgs(trade, now, now)...)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Info().
		Str("id", trade.ID).
		Str("instrument", trade.Instrument).
		Str("side", string(trade.Side)).
		Float64("quantity", trade.Quantity).
		Msg("Trade created")

	r.notifyChanged(1)
	return trade, nil
}

// Update replaces an existing trade record by ID
func (r *TradeRepository) Update(trade domain.Trade) error {
	if err := trade.Validate(); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	query := `
		UPDATE trades SET
			date = ?, exit_date = ?, instrument = ?, side = ?,
			entry_price = ?, exit_price = ?, quantity = ?,
			stop_loss = ?, take_profit = ?, risk_amount = ?, risk_percent = ?,
			strategy = ?, notes = ?, tags = ?, entry_reason = ?, exit_reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.journalDB.Exec(query,
		trade.Date,
		nullString(trade.ExitDate),
		strings.TrimSpace(trade.Instrument),
		string(trade.Side),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		nullFloat64Ptr(trade.StopLoss),
		nullFloat64Ptr(trade.TakeProfit),
		nullFloat64Ptr(trade.RiskAmount),
		nullFloat64Ptr(trade.RiskPercent),
		nullString(trade.Strategy),
		nullString(trade.Notes),
		nullString(trade.Tags),
		nullString(trade.EntryReason),
		nullString(trade.ExitReason),
		time.Now().Unix(),
		trade.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %s not found", trade.ID)
	}

	r.notifyChanged(1)
	return nil
}

// Delete removes a trade by ID
func (r *TradeRepository) Delete(id string) error {
	result, err := r.journalDB.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %s not found", id)
	}

	r.log.Info().Str("id", id).Msg("Trade deleted")
	r.notifyChanged(1)
	return nil
}

// GetByID retrieves a single trade, nil when not found
func (r *TradeRepository) GetByID(id string) (*domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE id = ?"

	row := r.journalDB.QueryRow(query, id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by id: %w", err)
	}

	return &trade, nil
}

// List retrieves all trades ordered by entry date ascending. Rows sharing a
// date keep insertion order (created_at, then id) so downstream aggregation
// stays deterministic.
func (r *TradeRepository) List() ([]domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades ORDER BY date ASC, created_at ASC, id ASC"

	rows, err := r.journalDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTradeFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// Count returns the number of stored trades
func (r *TradeRepository) Count() (int, error) {
	var count int
	if err := r.journalDB.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// ReplaceAll swaps the entire trade set in one transaction. Used by the
// spreadsheet sync so a half-fetched sheet can never leave the store in a
// mixed state. Invalid rows abort the whole replacement.
func (r *TradeRepository) ReplaceAll(trades []domain.Trade) error {
	for i := range trades {
		if err := trades[i].Validate(); err != nil {
			return fmt.Errorf("failed to replace trades: row %d: %w", i, err)
		}
		if strings.TrimSpace(trades[i].ID) == "" {
			trades[i].ID = uuid.New().String()
		}
	}

	now := time.Now().Unix()
	err := database.WithTransaction(r.journalDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM trades"); err != nil {
			return fmt.Errorf("failed to clear trades: %w", err)
		}

		query := `
			INSERT INTO trades
			(id, date, exit_date, instrument, side, entry_price, exit_price, quantity,
			 stop_loss, take_profit, risk_amount, risk_percent, strategy, notes, tags,
			 entry_reason, exit_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, trade := range trades {
			if _, err := stmt.Exec(insertArgs(trade, now, now)...); err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("count", len(trades)).Msg("Trade set replaced")
	r.notifyChanged(len(trades))
	return nil
}

// notifyChanged emits a TradesChanged event when an event manager is wired
func (r *TradeRepository) notifyChanged(count int) {
	if r.eventManager != nil {
		r.eventManager.Emit(events.TradesChanged, "journal", map[string]interface{}{
			"count": count,
		})
	}
}

// insertArgs builds the positional arguments for a trades INSERT
func insertArgs(trade domain.Trade, createdAt, updatedAt int64) []interface{} {
	return []interface{}{
		trade.ID,
		trade.Date,
		nullString(trade.ExitDate),
		strings.TrimSpace(trade.Instrument),
		string(trade.Side),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		nullFloat64Ptr(trade.StopLoss),
		nullFloat64Ptr(trade.TakeProfit),
		nullFloat64Ptr(trade.RiskAmount),
		nullFloat64Ptr(trade.RiskPercent),
		nullString(trade.Strategy),
		nullString(trade.Notes),
		nullString(trade.Tags),
		nullString(trade.EntryReason),
		nullString(trade.ExitReason),
		createdAt,
		updatedAt,
	}
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row *sql.Row) (domain.Trade, error) {
	return scanTradeFrom(row)
}

func scanTradeFromRows(rows *sql.Rows) (domain.Trade, error) {
	return scanTradeFrom(rows)
}

func scanTradeFrom(s scanner) (domain.Trade, error) {
	var trade domain.Trade
	var side string
	var exitDate, strategy, notes, tags, entryReason, exitReason sql.NullString
	var stopLoss, takeProfit, riskAmount, riskPercent sql.NullFloat64

	err := s.Scan(
		&trade.ID,
		&trade.Date,
		&exitDate,
		&trade.Instrument,
		&side,
		&trade.EntryPrice,
		&trade.ExitPrice,
		&trade.Quantity,
		&stopLoss,
		&takeProfit,
		&riskAmount,
		&riskPercent,
		&strategy,
		&notes,
		&tags,
		&entryReason,
		&exitReason,
	)
	if err != nil {
		return domain.Trade{}, err
	}

	trade.Side = domain.Side(side)
	trade.ExitDate = exitDate.String
	trade.Strategy = strategy.String
	trade.Notes = notes.String
	trade.Tags = tags.String
	trade.EntryReason = entryReason.String
	trade.ExitReason = exitReason.String
	trade.StopLoss = float64Ptr(stopLoss)
	trade.TakeProfit = float64Ptr(takeProfit)
	trade.RiskAmount = float64Ptr(riskAmount)
	trade.RiskPercent = float64Ptr(riskPercent)

	return trade, nil
}

// nullString converts an empty string to NULL for optional columns
func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// nullFloat64Ptr converts a nil pointer to NULL
func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// float64Ptr converts a nullable column back to an optional field
func float64Ptr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
