package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/deevus/pgrepl-tui/replication"
	"github.com/jackc/pgx/v5/pgtype"
)

// ParseLag parses PostgreSQL's text form of an interval as reported for
// write/flush/replay lag, e.g. "00:00:00.003" or "1 day 02:00:00". Months
// count as 30 days.
func ParseLag(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}
	var iv pgtype.Interval
	if err := iv.Scan(s); err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	days := int64(iv.Days) + int64(iv.Months)*30
	return time.Duration(iv.Microseconds)*time.Microsecond +
		time.Duration(days)*24*time.Hour, nil
}

// maxLag returns the largest parseable value of key across rows.
func maxLag(rows []replication.Row, key string) (time.Duration, bool) {
	var worst time.Duration
	found := false
	for _, r := range rows {
		s, ok := r[key].(string)
		if !ok {
			continue
		}
		d, err := ParseLag(s)
		if err != nil {
			continue
		}
		if !found || d > worst {
			worst = d
			found = true
		}
	}
	return worst, found
}

// countActive returns how many rows have active=true, and how many rows
// carry an active field at all.
func countActive(rows []replication.Row) (active, total int) {
	for _, r := range rows {
		v, ok := r["active"]
		if !ok {
			continue
		}
		total++
		if b, ok := v.(bool); ok && b {
			active++
		}
	}
	return active, total
}
