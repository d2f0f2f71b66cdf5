package trie

import (
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// chars splits s into one token per character.
func chars(s string) []string {
	return strings.Split(s, "")
}

func sampleCounter() *Counter {
	c := New()
	for _, s := range []string{"abc", "abde", "cde", "cfg", "abdij", "dfg", "af"} {
		c.Add(chars(s))
	}
	return c
}

// ///////////////////////////////////////////////
// Add
// ///////////////////////////////////////////////

func TestAddBuildsTree(t *testing.T) {
	c := sampleCounter()

	want := "t(7, " +
		"a=t(4, b=t(3, c=t(1), d=t(2, e=t(1), i=t(1, j=t(1)))), f=t(1)), " +
		"c=t(2, d=t(1, e=t(1)), f=t(1, g=t(1))), " +
		"d=t(1, f=t(1, g=t(1))))"
	if got := c.String(); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}
}

func TestAddEmptySequence(t *testing.T) {
	c := New()
	c.Add(nil)
	c.Add([]string{})
	c.Add([]string{"x"})

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if got := c.Cardinality("x"); got != 1 {
		t.Errorf("Cardinality(x) = %d, want 1", got)
	}
	if got := c.String(); got != "t(3, x=t(1))" {
		t.Errorf("tree = %s", got)
	}
}

func TestCardinality(t *testing.T) {
	c := sampleCounter()
	tests := []struct {
		path []string
		want int
	}{
		{nil, 7},
		{[]string{"a"}, 4},
		{[]string{"a", "b", "d"}, 2},
		{[]string{"c", "f", "g"}, 1},
		{[]string{"z"}, 0},
		{[]string{"a", "z"}, 0},
	}
	for _, tt := range tests {
		if got := c.Cardinality(tt.path...); got != tt.want {
			t.Errorf("Cardinality(%v) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// MostCommon
// ///////////////////////////////////////////////

func TestMostCommonDefaultThreshold(t *testing.T) {
	got := sampleCounter().MostCommon(DefaultThreshold)
	want := []Cluster{
		{Tokens: []string{"a", "b", "d"}, Count: 2},
		{Tokens: []string{"a"}, Count: 4},
		{Tokens: []string{"c"}, Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MostCommon = %v, want %v", got, want)
	}
}

func TestMostCommonAbsoluteThreshold(t *testing.T) {
	got := sampleCounter().MostCommon(3)
	// a(4) qualifies; its child b(3) qualifies but b's children do not and
	// b has no unexplained mass above 3, so only "a" itself surfaces.
	want := []Cluster{{Tokens: []string{"a"}, Count: 4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MostCommon(3) = %v, want %v", got, want)
	}
}

func TestMostCommonBelowThreshold(t *testing.T) {
	c := New()
	c.Add([]string{"a"})
	if got := c.MostCommon(5); got != nil {
		t.Errorf("MostCommon(5) on 1 entry = %v, want nil", got)
	}
}

func TestMostCommonEmpty(t *testing.T) {
	if got := New().MostCommon(DefaultThreshold); len(got) != 0 {
		t.Errorf("MostCommon on empty counter = %v, want none", got)
	}
}

func TestMostCommonTiesKeepInsertionOrder(t *testing.T) {
	c := New()
	for _, s := range []string{"x y", "x y", "w z", "w z", "x q", "w q"} {
		c.Add(strings.Fields(s))
	}
	got := c.MostCommon(2)
	if len(got) < 2 {
		t.Fatalf("MostCommon = %v, want at least two clusters", got)
	}
	if got[0].Tokens[0] != "x" {
		t.Errorf("first cluster %v, want the earlier-inserted x branch first", got[0])
	}
}

func TestResolveThreshold(t *testing.T) {
	c := sampleCounter()
	tests := []struct {
		in   float64
		want int
	}{
		{0.2, 1},
		{0.5, 3},
		{0, 0},
		{1, 1},
		{4, 4},
	}
	for _, tt := range tests {
		if got := c.ResolveThreshold(tt.in); got != tt.want {
			t.Errorf("ResolveThreshold(%g) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReversed(t *testing.T) {
	in := []string{"a", "b", "c"}
	got := Reversed(in)
	if !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("Reversed = %v", got)
	}
	if in[0] != "a" {
		t.Error("Reversed must not modify its input")
	}
}

// ///////////////////////////////////////////////
// Properties
// ///////////////////////////////////////////////

func drawSequences(t *rapid.T) [][]string {
	tok := rapid.SampledFrom([]string{"a", "b", "c", "d"})
	return rapid.SliceOfN(rapid.SliceOfN(tok, 0, 5), 0, 40).Draw(t, "sequences")
}

func TestPropertyRootCountsEverySequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seqs := drawSequences(t)
		c := New()
		for _, s := range seqs {
			c.Add(s)
		}
		if c.Len() != len(seqs) {
			t.Fatalf("Len = %d, want %d", c.Len(), len(seqs))
		}
	})
}

func TestPropertyNodeCoversChildren(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		for _, s := range drawSequences(t) {
			c.Add(s)
		}
		for i, n := range c.nodes {
			sum := 0
			for _, idx := range n.children {
				sum += c.nodes[idx].cardinality
			}
			if sum > n.cardinality {
				t.Fatalf("node %d: children sum %d exceeds cardinality %d", i, sum, n.cardinality)
			}
		}
	})
}

func TestPropertyClustersMeetThreshold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		for _, s := range drawSequences(t) {
			c.Add(s)
		}
		threshold := rapid.Float64Range(0, 0.99).Draw(t, "threshold")
		limit := c.ResolveThreshold(threshold)
		for _, cl := range c.MostCommon(threshold) {
			if cl.Count < limit {
				t.Fatalf("cluster %v below threshold %d", cl, limit)
			}
			if len(cl.Tokens) == 0 {
				t.Fatalf("root must never be reported as a cluster")
			}
			if got := c.Cardinality(cl.Tokens...); got != cl.Count {
				t.Fatalf("cluster %v count differs from node cardinality %d", cl, got)
			}
		}
	})
}
