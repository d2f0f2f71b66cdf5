package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Run is the slice of a stored run the summary needs. Reason is empty for
// the run still open.
type Run struct {
	Start, End time.Time
	Reason     string
}

// RunSummary totals present time across runs.
type RunSummary struct {
	Count    int
	Total    time.Duration
	ByReason map[string]int
}

// SummarizeRuns totals the part of each run inside [since, until), the same
// window analyze clips intervals to. Zero bounds are open. Open runs are
// counted up to now under "open"; runs outside the window are skipped.
func SummarizeRuns(runs []Run, since, until, now time.Time) RunSummary {
	s := RunSummary{ByReason: make(map[string]int)}
	for _, r := range runs {
		start, end, reason := r.Start, r.End, r.Reason
		if end.IsZero() {
			end, reason = now, "open"
		}
		if (!until.IsZero() && !start.Before(until)) || (!since.IsZero() && end.Before(since)) {
			continue
		}
		if !since.IsZero() && start.Before(since) {
			start = since
		}
		if !until.IsZero() && end.After(until) {
			end = until
		}
		if end.After(start) {
			s.Total += end.Sub(start)
		}
		s.Count++
		s.ByReason[reason]++
	}
	return s
}

// WriteRunSummary prints one line such as
// "runs 3 1h2m0s (inactive 2, open 1)", reasons sorted by name.
func WriteRunSummary(w io.Writer, s RunSummary) error {
	reasons := make([]string, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s %d", r, s.ByReason[r])
	}
	line := fmt.Sprintf("runs %d %s", s.Count, FormatDuration(s.Total))
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
