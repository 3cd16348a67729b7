package metrics

import (
	"sort"
	"time"

	"github.com/aristath/journal/internal/domain"
)

// DayAggregate is the summed P&L and trade count for one calendar day.
type DayAggregate struct {
	PnL   float64 `json:"pnl"`
	Count int     `json:"count"`
}

// WeekdayAggregate is the summed P&L and trade count for one weekday
// (0=Sunday .. 6=Saturday).
type WeekdayAggregate struct {
	PnL   float64 `json:"pnl"`
	Count int     `json:"count"`
}

// DayKey truncates a trade timestamp string to its calendar day (YYYY-MM-DD),
// determined in the LOCAL time zone. Date-only input passes through after a
// validity check. Returns ok=false for unparseable input.
//
// The local-zone policy is deliberate: bucketing by UTC would move trades
// entered near midnight onto the wrong calendar day for any journal keeper
// not living on the prime meridian.
func DayKey(timestamp string) (string, bool) {
	t, ok := domain.ParseTimestamp(timestamp)
	if !ok {
		return "", false
	}
	return t.In(time.Local).Format("2006-01-02"), true
}

// AggregateByDay buckets trades by the calendar day of their ENTRY date.
// Each trade contributes its full signed P&L and a count of 1 to exactly one
// bucket; the exit date never determines the bucket. Trades whose entry date
// does not parse are skipped.
func AggregateByDay(trades []domain.Trade) map[string]DayAggregate {
	days := make(map[string]DayAggregate)
	for _, trade := range trades {
		key, ok := DayKey(trade.Date)
		if !ok {
			continue
		}
		agg := days[key]
		agg.PnL += ComputePnL(trade)
		agg.Count++
		days[key] = agg
	}
	return days
}

// AggregateByWeekday re-derives the day-of-week from each day bucket's key
// and sums across all days sharing that weekday index (0=Sunday..6=Saturday).
func AggregateByWeekday(days map[string]DayAggregate) [7]WeekdayAggregate {
	var weekdays [7]WeekdayAggregate
	for key, agg := range days {
		t, ok := domain.ParseTimestamp(key)
		if !ok {
			continue
		}
		idx := int(t.Weekday())
		weekdays[idx].PnL += agg.PnL
		weekdays[idx].Count += agg.Count
	}
	return weekdays
}

// BestWorstWeekday returns the weekday indices holding the maximum and
// minimum summed P&L. Ties resolve to the lowest index, mirroring a linear
// first-occurrence scan. Both are 0 for an all-zero (or empty) week.
func BestWorstWeekday(weekdays [7]WeekdayAggregate) (best, worst int) {
	for i := 1; i < len(weekdays); i++ {
		if weekdays[i].PnL > weekdays[best].PnL {
			best = i
		}
		if weekdays[i].PnL < weekdays[worst].PnL {
			worst = i
		}
	}
	return best, worst
}

// SortedDayKeys returns the day keys of a day aggregation in ascending
// order, for deterministic presentation.
func SortedDayKeys(days map[string]DayAggregate) []string {
	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
