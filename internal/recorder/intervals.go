package recorder

import (
	"time"

	"tools.zach/dev/pctracker/internal/store"
	"tools.zach/dev/pctracker/internal/window"
)

// openInterval is the row currently tracking one window.
type openInterval struct {
	rowID  int64
	title  string
	active bool
}

func (o openInterval) same(w window.Window) bool {
	return o.title == w.Title && o.active == w.Active
}

// Intervals maps each present window to the row that is still being
// extended for it. It only changes through [Intervals.Commit] and
// [Intervals.Reset], after the store has accepted the matching writes.
type Intervals struct {
	open map[window.ID]openInterval
}

// Len returns the number of open intervals.
func (iv *Intervals) Len() int {
	return len(iv.open)
}

// Reset forgets every open interval; their rows stay closed as last extended.
func (iv *Intervals) Reset() {
	iv.open = nil
}

// Commit installs the map produced by [Diff.Apply].
func (iv *Intervals) Commit(next map[window.ID]openInterval) {
	iv.open = next
}

// Diff is the outcome of comparing a snapshot with the open intervals.
type Diff struct {
	// Extend lists rows whose window is unchanged.
	Extend []int64
	// Insert lists windows that need a fresh row: new ids and ids whose
	// title or focus changed.
	Insert []window.Window

	kept map[window.ID]openInterval
}

// Diff classifies snapshot against the open intervals. Windows absent from
// snapshot drop out; their rows are simply no longer extended. A repeated id
// keeps its first entry.
func (iv *Intervals) Diff(snapshot []window.Window) Diff {
	d := Diff{kept: make(map[window.ID]openInterval, len(snapshot))}
	seen := make(map[window.ID]bool, len(snapshot))
	for _, w := range snapshot {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		if cur, ok := iv.open[w.ID]; ok && cur.same(w) {
			d.Extend = append(d.Extend, cur.rowID)
			d.kept[w.ID] = cur
			continue
		}
		d.Insert = append(d.Insert, w)
	}
	return d
}

// Apply writes the diff through tx and returns the open-interval map to
// commit once tx succeeds. Extended rows end at now; inserted rows span
// [start, now].
func (d Diff) Apply(tx store.Writer, start, now time.Time) (map[window.ID]openInterval, error) {
	if len(d.Extend) > 0 {
		if err := tx.ExtendWindows(d.Extend, now); err != nil {
			return nil, err
		}
	}
	next := make(map[window.ID]openInterval, len(d.kept)+len(d.Insert))
	for id, cur := range d.kept {
		next[id] = cur
	}
	for _, w := range d.Insert {
		rowID, err := tx.InsertWindow(store.Interval{Start: start, End: now, Active: w.Active, Title: w.Title})
		if err != nil {
			return nil, err
		}
		next[w.ID] = openInterval{rowID: rowID, title: w.Title, active: w.Active}
	}
	return next, nil
}
