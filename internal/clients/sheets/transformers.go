package sheets

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
)

// columnAliases maps canonical field names to the header spellings seen in
// real journal spreadsheets. Headers are matched lowercase and trimmed.
var columnAliases = map[string][]string{
	"id":           {"id", "trade id"},
	"date":         {"date", "entry date", "open date", "datetime"},
	"exit_date":    {"exit date", "close date", "closed"},
	"instrument":   {"instrument", "symbol", "ticker", "pair", "asset"},
	"side":         {"side", "direction", "type"},
	"entry_price":  {"entry price", "entry", "open price", "buy price"},
	"exit_price":   {"exit price", "exit", "close price", "sell price"},
	"quantity":     {"quantity", "qty", "size", "shares", "units"},
	"stop_loss":    {"stop loss", "stop", "sl"},
	"take_profit":  {"take profit", "target", "tp"},
	"risk_amount":  {"risk amount", "risk $", "risk"},
	"risk_percent": {"risk percent", "risk %"},
	"strategy":     {"strategy", "setup", "system"},
	"notes":        {"notes", "comment", "comments"},
	"tags":         {"tags"},
	"entry_reason": {"entry reason", "reason for entry"},
	"exit_reason":  {"exit reason", "reason for exit"},
}

// headerIndex resolves a header row to canonical-field -> column-index
func headerIndex(headers []string) map[string]int {
	index := make(map[string]int)
	for col, raw := range headers {
		header := strings.ToLower(strings.TrimSpace(raw))
		for field, aliases := range columnAliases {
			if _, taken := index[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if header == alias {
					index[field] = col
					break
				}
			}
		}
	}
	return index
}

// TransformRows reshapes raw CSV records (first row = headers) into trades.
// Rows missing a recognizable side or entry date are logged and skipped;
// a partially malformed sheet degrades to the rows that do parse.
func TransformRows(records [][]string, log zerolog.Logger) []domain.Trade {
	if len(records) < 2 {
		return nil
	}

	index := headerIndex(records[0])
	trades := make([]domain.Trade, 0, len(records)-1)

	for i, record := range records[1:] {
		trade, err := transformRow(index, record)
		if err != nil {
			log.Warn().
				Int("row", i+2). // 1-based, headers on row 1
				Err(err).
				Msg("Skipping sheet row")
			continue
		}
		trades = append(trades, trade)
	}

	return trades
}

// transformRow builds a single trade from one CSV record
func transformRow(index map[string]int, record []string) (domain.Trade, error) {
	side, err := domain.ParseSide(cell(record, index, "side"))
	if err != nil {
		return domain.Trade{}, err
	}

	trade := domain.Trade{
		ID:          cell(record, index, "id"),
		Date:        cell(record, index, "date"),
		ExitDate:    cell(record, index, "exit_date"),
		Instrument:  cell(record, index, "instrument"),
		Side:        side,
		Strategy:    cell(record, index, "strategy"),
		Notes:       cell(record, index, "notes"),
		Tags:        cell(record, index, "tags"),
		EntryReason: cell(record, index, "entry_reason"),
		ExitReason:  cell(record, index, "exit_reason"),
	}

	// Prices and quantity default to 0 when missing or malformed; the
	// engine handles zeros arithmetically.
	trade.EntryPrice, _ = ParseLenientFloat(cell(record, index, "entry_price"))
	trade.ExitPrice, _ = ParseLenientFloat(cell(record, index, "exit_price"))
	trade.Quantity, _ = ParseLenientFloat(cell(record, index, "quantity"))

	// Optional risk fields stay nil when absent so "no data" remains
	// distinguishable from zero downstream.
	trade.StopLoss = optionalFloat(record, index, "stop_loss")
	trade.TakeProfit = optionalFloat(record, index, "take_profit")
	trade.RiskAmount = optionalFloat(record, index, "risk_amount")
	trade.RiskPercent = optionalFloat(record, index, "risk_percent")

	if err := trade.Validate(); err != nil {
		return domain.Trade{}, err
	}

	return trade, nil
}

// cell reads a canonical field from a record, empty when unmapped or short
func cell(record []string, index map[string]int, field string) string {
	col, ok := index[field]
	if !ok || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// optionalFloat parses an optional numeric cell to a pointer
func optionalFloat(record []string, index map[string]int, field string) *float64 {
	raw := cell(record, index, field)
	if raw == "" {
		return nil
	}
	v, ok := ParseLenientFloat(raw)
	if !ok {
		return nil
	}
	return &v
}
