// Package report turns a classified tree into an immutable [Entry] tree and
// renders it. Building never touches the classifier, so renderers can be
// swapped freely.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tools.zach/dev/pctracker/internal/classify"
	"tools.zach/dev/pctracker/internal/trie"
)

// DefaultExamples is how many unmatched clusters each node shows.
const DefaultExamples = 5

// Entry is one node of a built report.
type Entry struct {
	Label    string
	Duration time.Duration
	Children []Entry
	// HasOther is set when the node has children or unmatched entries and
	// therefore gets an "other" line.
	HasOther bool
	// Other is Duration minus the children's durations. A leaf has no
	// children, so its Other is its whole Duration: every title that reached
	// it went unmatched there.
	Other    time.Duration
	Examples []Example
}

// Example is one frequent unmatched title cluster.
type Example struct {
	Text  string
	Count int
	// Side is "prefix" or "suffix", the trie the cluster came from.
	Side string
}

// Options tune how a report is built.
type Options struct {
	// Threshold is passed to [trie.Counter.MostCommon].
	Threshold float64
	// Examples caps the clusters shown per node. Zero or less shows none.
	Examples int
}

// DefaultOptions returns the options analyze uses without flags.
func DefaultOptions() Options {
	return Options{Threshold: trie.DefaultThreshold, Examples: DefaultExamples}
}

// ///////////////////////////////////////////////
// Building
// ///////////////////////////////////////////////

// Build walks root and returns its report, children sorted by descending
// duration with ties kept in creation order.
func Build(root *classify.Node, opts Options) Entry {
	e := Entry{
		Label:    root.Label,
		Duration: root.Duration,
		Other:    root.Duration,
	}
	children := root.Children()
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Duration > children[j].Duration
	})
	for _, c := range children {
		child := Build(c, opts)
		e.Other -= child.Duration
		e.Children = append(e.Children, child)
	}
	e.HasOther = len(children) > 0 || root.Unmatched() > 0
	if root.Unmatched() > 0 {
		e.Examples = Examples(root.Prefixes, root.Suffixes, opts.Threshold, opts.Examples)
	}
	return e
}

// Examples merges the most common prefix and suffix clusters by descending
// count, taking the prefix on ties, and returns at most limit of them.
// Suffix clusters are reversed back into reading order. A title common from
// both ends shows up once per side.
func Examples(prefixes, suffixes *trie.Counter, threshold float64, limit int) []Example {
	if limit <= 0 {
		return nil
	}
	pre := prefixes.MostCommon(threshold)
	suf := suffixes.MostCommon(threshold)

	var out []Example
	i, j := 0, 0
	for len(out) < limit && (i < len(pre) || j < len(suf)) {
		if j >= len(suf) || (i < len(pre) && pre[i].Count >= suf[j].Count) {
			out = append(out, Example{Text: strings.Join(pre[i].Tokens, " "), Count: pre[i].Count, Side: "prefix"})
			i++
		} else {
			out = append(out, Example{Text: strings.Join(trie.Reversed(suf[j].Tokens), " "), Count: suf[j].Count, Side: "suffix"})
			j++
		}
	}
	return out
}

// ///////////////////////////////////////////////
// Formatting
// ///////////////////////////////////////////////

// FormatDuration renders d in whole seconds as e.g. "1h2m3s", omitting
// leading zero units: 59s, 1m0s, 1h0m0s.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	sign := ""
	if secs < 0 {
		sign, secs = "-", -secs
	}
	out := fmt.Sprintf("%ds", secs%60)
	if secs >= 60 {
		out = fmt.Sprintf("%dm%s", (secs/60)%60, out)
		if secs >= 3600 {
			out = fmt.Sprintf("%dh%s", secs/3600, out)
		}
	}
	return sign + out
}
