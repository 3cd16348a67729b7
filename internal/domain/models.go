// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side represents the direction of a trade
type Side string

const (
	SideBuy   Side = "Buy"
	SideSell  Side = "Sell"
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// ParseSide normalizes a raw side string to a known Side value.
// Matching is case-insensitive ("buy", "BUY" and "Buy" are all SideBuy).
// Unknown values return an error - callers at input boundaries (repository
// validation, spreadsheet import) must reject or skip such records so the
// metrics engine never sees them.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	case "long":
		return SideLong, nil
	case "short":
		return SideShort, nil
	}
	return "", fmt.Errorf("unknown trade side: %q", raw)
}

// IsLong reports whether the side is in the long direction (Buy/Long)
func (s Side) IsLong() bool {
	return s == SideBuy || s == SideLong
}

// Trade represents a single journal entry for an executed (or still open) trade.
//
// Date and ExitDate are kept as the strings the user or spreadsheet supplied.
// They are ISO-8601-like ("2024-03-05" or "2024-03-05T14:30:00Z"); date-only
// values are interpreted as local midnight (see ParseTimestamp). The entry
// timestamp must parse; the exit timestamp is optional and may be malformed,
// in which case duration-derived statistics simply skip the trade.
type Trade struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	ExitDate    string   `json:"exit_date,omitempty"`
	Instrument  string   `json:"instrument"`
	Side        Side     `json:"side"`
	EntryPrice  float64  `json:"entry_price"`
	ExitPrice   float64  `json:"exit_price"`
	Quantity    float64  `json:"quantity"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
	TakeProfit  *float64 `json:"take_profit,omitempty"`
	RiskAmount  *float64 `json:"risk_amount,omitempty"`
	RiskPercent *float64 `json:"risk_percent,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        string   `json:"tags,omitempty"`
	EntryReason string   `json:"entry_reason,omitempty"`
	ExitReason  string   `json:"exit_reason,omitempty"`
}

// timestampLayouts are tried in order by ParseTimestamp.
// Layouts without a zone are parsed in the local location so that day
// bucketing never shifts across the UTC boundary.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601-like timestamp string.
// Date-only values ("2006-01-02") are treated as midnight in the local time
// zone. Returns ok=false for empty or unparseable input; it never panics.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Date-only: interpret as local midnight, not UTC. Parsing "2006-01-02"
	// with time.Parse would yield midnight UTC and shift the calendar day
	// for anyone west of Greenwich.
	if len(s) == len("2006-01-02") {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// EntryTime parses the trade's entry timestamp
func (t Trade) EntryTime() (time.Time, bool) {
	return ParseTimestamp(t.Date)
}

// ExitTime parses the trade's exit timestamp, if any
func (t Trade) ExitTime() (time.Time, bool) {
	return ParseTimestamp(t.ExitDate)
}

// IsOpen reports whether the trade has no recorded exit
func (t Trade) IsOpen() bool {
	return strings.TrimSpace(t.ExitDate) == "" && t.ExitPrice == 0
}

// Validate checks the trade's input contract before it is persisted.
// The metrics engine itself is total and performs no validation; this is the
// producing collaborator's responsibility.
func (t Trade) Validate() error {
	if strings.TrimSpace(t.Instrument) == "" {
		return fmt.Errorf("instrument must not be empty")
	}
	if _, err := ParseSide(string(t.Side)); err != nil {
		return err
	}
	if _, ok := t.EntryTime(); !ok {
		return fmt.Errorf("date %q is not a valid timestamp", t.Date)
	}
	if t.EntryPrice < 0 {
		return fmt.Errorf("entry price must not be negative")
	}
	if t.ExitPrice < 0 {
		return fmt.Errorf("exit price must not be negative")
	}
	if t.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	return nil
}
