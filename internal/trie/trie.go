// Package trie counts multisets of token sequences in a prefix tree and
// extracts the frequent clusters among them.
//
// The analyzer feeds it word-tokenized window titles that no rule matched,
// once in reading order and once reversed, to surface common prefixes and
// suffixes worth turning into rules.
//
// Nodes live in an arena addressed by index; each node maps a token to the
// index of its child and remembers the order in which children were first
// seen so that equal-cardinality children are visited deterministically.
package trie

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultThreshold is the fraction of the counter's size a cluster must reach.
const DefaultThreshold = 0.2

// root is the arena index of the root node.
const root = 0

type node struct {
	cardinality int
	// order lists child tokens by first insertion.
	order    []string
	children map[string]int
}

// Counter is a multiset of token sequences. The zero value is not usable;
// call [New].
type Counter struct {
	nodes []node
}

// Cluster is a token sequence and the number of added sequences it accounts for.
type Cluster struct {
	Tokens []string
	Count  int
}

// New returns an empty Counter.
func New() *Counter {
	return &Counter{nodes: []node{{}}}
}

// Len returns the number of sequences added.
func (c *Counter) Len() int {
	return c.nodes[root].cardinality
}

// Add inserts one sequence. An empty sequence only counts at the root.
func (c *Counter) Add(tokens []string) {
	idx := root
	c.nodes[idx].cardinality++
	for _, tok := range tokens {
		idx = c.child(idx, tok)
		c.nodes[idx].cardinality++
	}
}

// child returns the index of the child of idx keyed by tok, creating it.
func (c *Counter) child(idx int, tok string) int {
	n := &c.nodes[idx]
	if next, ok := n.children[tok]; ok {
		return next
	}
	next := len(c.nodes)
	if n.children == nil {
		n.children = make(map[string]int)
	}
	n.children[tok] = next
	n.order = append(n.order, tok)
	// n is invalidated by the append below.
	c.nodes = append(c.nodes, node{})
	return next
}

// Cardinality returns how many added sequences start with path.
func (c *Counter) Cardinality(path ...string) int {
	idx := root
	for _, tok := range path {
		next, ok := c.nodes[idx].children[tok]
		if !ok {
			return 0
		}
		idx = next
	}
	return c.nodes[idx].cardinality
}

// ResolveThreshold converts threshold to an absolute count: values in [0,1)
// are a fraction of [Counter.Len], rounded down; larger values are truncated.
func (c *Counter) ResolveThreshold(threshold float64) int {
	if threshold < 1 {
		return int(math.Floor(threshold * float64(c.Len())))
	}
	return int(threshold)
}

// MostCommon returns the clusters whose count reaches threshold (see
// [Counter.ResolveThreshold]), deepest first within each subtree and
// subtrees in descending cardinality. It returns nil when the counter holds
// fewer sequences than the threshold.
func (c *Counter) MostCommon(threshold float64) []Cluster {
	limit := c.ResolveThreshold(threshold)
	if c.Len() < limit {
		return nil
	}
	var out []Cluster
	c.collect(root, limit, nil, &out)
	return out
}

// collect appends the clusters below idx and returns the total count it
// emitted, which the caller uses to decide whether its own node still holds
// enough unexplained mass to be a cluster.
func (c *Counter) collect(idx, limit int, prefix []string, out *[]Cluster) int {
	n := c.nodes[idx]
	emitted := 0
	for _, tok := range c.sortedChildren(idx) {
		child := n.children[tok]
		if c.nodes[child].cardinality < limit {
			break
		}
		emitted += c.collect(child, limit, append(prefix[:len(prefix):len(prefix)], tok), out)
	}
	if idx != root && n.cardinality-emitted > limit {
		*out = append(*out, Cluster{Tokens: prefix, Count: n.cardinality})
		emitted += n.cardinality
	}
	return emitted
}

// sortedChildren returns child tokens by descending cardinality, ties in
// insertion order.
func (c *Counter) sortedChildren(idx int) []string {
	n := c.nodes[idx]
	keys := make([]string, len(n.order))
	copy(keys, n.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.nodes[n.children[keys[i]]].cardinality > c.nodes[n.children[keys[j]]].cardinality
	})
	return keys
}

// String renders the tree as t(card, key=t(...), ...) with keys sorted, which
// makes whole-tree comparisons in tests readable.
func (c *Counter) String() string {
	var b strings.Builder
	c.format(&b, root)
	return b.String()
}

func (c *Counter) format(b *strings.Builder, idx int) {
	n := c.nodes[idx]
	b.WriteString("t(")
	b.WriteString(strconv.Itoa(n.cardinality))
	keys := make([]string, len(n.order))
	copy(keys, n.order)
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(", ")
		b.WriteString(k)
		b.WriteString("=")
		c.format(b, n.children[k])
	}
	b.WriteString(")")
}

// Reversed returns a reversed copy of tokens, for feeding the suffix counter.
func Reversed(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[len(tokens)-1-i] = tok
	}
	return out
}
