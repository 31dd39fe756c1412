package coordinator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dreamlayer/artvault/pkg/types"
)

// monthKey and weekKey format the rolling-count period keys.
func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Stats returns the aggregate counters record. A missing or unreadable
// stats slot yields zeroed counters.
func (c *Coordinator) Stats() types.Stats {
	raw, ok := c.kv.Get(types.KeyStats)
	if !ok {
		return types.Stats{}
	}
	var stats types.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		c.log.Warn("stats slot unreadable, starting fresh", "error", err)
		return types.Stats{}
	}
	return stats
}

// updateStats folds one saved artifact into the counters, rolling the
// monthly and weekly counts over when their period key changes.
func (c *Coordinator) updateStats(rec types.Artifact) error {
	now := c.now()
	stats := c.Stats()

	if mk := monthKey(now); stats.MonthKey != mk {
		stats.MonthKey = mk
		stats.MonthImages = 0
	}
	if wk := weekKey(now); stats.WeekKey != wk {
		stats.WeekKey = wk
		stats.WeekImages = 0
	}

	stats.TotalImages++
	stats.MonthImages++
	stats.WeekImages++
	stats.TotalBytes += rec.SizeBytes
	stats.UpdatedAt = types.FormatTime(now)

	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.kv.Set(types.KeyStats, string(raw)); err != nil {
		return fmt.Errorf("persist stats: %w", err)
	}
	return nil
}

// bumpCounter is the second line of defense when the full stats update
// fails: a bare total-count increment in its own slot.
func (c *Coordinator) bumpCounter() {
	count := 0
	if raw, ok := c.kv.Get(types.KeyCounter); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}
	if err := c.kv.Set(types.KeyCounter, strconv.Itoa(count+1)); err != nil {
		c.log.Warn("counter fallback failed", "error", err)
	}
}
