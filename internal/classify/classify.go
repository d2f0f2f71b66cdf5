// Package classify buckets window intervals into a tree of labelled durations
// using an ordered, first-match-wins rule tree.
//
// Titles that no rule at a level accepts stay on that level's node and are
// fed, word-tokenized, into a prefix and a suffix [trie.Counter] so the
// report can suggest new rules.
package classify

import (
	"strings"
	"time"

	"tools.zach/dev/pctracker/internal/trie"
)

// Node accumulates the duration of every interval that reached it.
type Node struct {
	Label    string
	Duration time.Duration
	// Prefixes counts the unmatched titles' words; Suffixes the same words
	// reversed.
	Prefixes *trie.Counter
	Suffixes *trie.Counter

	children map[string]*Node
	order    []string
}

// NewNode returns an empty node labelled label.
func NewNode(label string) *Node {
	return &Node{
		Label:    label,
		Prefixes: trie.New(),
		Suffixes: trie.New(),
		children: make(map[string]*Node),
	}
}

// Child returns the child labelled label, creating it.
func (n *Node) Child(label string) *Node {
	if c, ok := n.children[label]; ok {
		return c
	}
	c := NewNode(label)
	n.children[label] = c
	n.order = append(n.order, label)
	return c
}

// Children returns the children in creation order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.order))
	for i, label := range n.order {
		out[i] = n.children[label]
	}
	return out
}

// Unmatched returns how many intervals stopped at n because no rule
// accepted them.
func (n *Node) Unmatched() int {
	return n.Prefixes.Len()
}

func (n *Node) addUnmatched(title string) {
	words := strings.Fields(title)
	n.Prefixes.Add(words)
	n.Suffixes.Add(trie.Reversed(words))
}

// ///////////////////////////////////////////////
// Classifier
// ///////////////////////////////////////////////

// Classifier owns a report tree rooted at a node labelled with the report
// title.
type Classifier struct {
	rules []Rule
	root  *Node
}

// New returns a classifier applying rules under a root labelled title.
func New(title string, rules []Rule) *Classifier {
	return &Classifier{rules: rules, root: NewNode(title)}
}

// Root returns the report tree.
func (c *Classifier) Root() *Node {
	return c.root
}

// Add classifies one interval. Its duration is added to the root and to
// every node along the matched path.
func (c *Classifier) Add(title string, d time.Duration) {
	node, rules := c.root, c.rules
	for {
		node.Duration += d
		rule, rest, ok := firstMatch(rules, title)
		if !ok {
			node.addUnmatched(title)
			return
		}
		node, rules, title = node.Child(rule.Label), rule.Rules, rest
	}
}

func firstMatch(rules []Rule, title string) (Rule, string, bool) {
	for _, r := range rules {
		if rest, ok := r.Matcher.Match(title); ok {
			return r, rest, true
		}
	}
	return Rule{}, "", false
}
