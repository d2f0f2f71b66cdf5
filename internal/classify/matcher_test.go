package classify

import (
	"errors"
	"testing"
)

func TestMatchers(t *testing.T) {
	mustGlob := func(p string) Matcher {
		m, err := Glob(p)
		if err != nil {
			t.Fatalf("Glob(%q): %v", p, err)
		}
		return m
	}
	mustRegex := func(e string) Matcher {
		m, err := Regex(e)
		if err != nil {
			t.Fatalf("Regex(%q): %v", e, err)
		}
		return m
	}

	tests := []struct {
		name     string
		matcher  Matcher
		title    string
		wantRest string
		wantOK   bool
	}{
		{"prefix hit", Prefix("Slack"), "Slack | general", " | general", true},
		{"prefix miss", Prefix("Slack"), "general | Slack", "", false},
		{"prefix whole", Prefix("Signal"), "Signal", "", true},
		{"suffix hit", Suffix(" - YouTube"), "cats - YouTube", "cats", true},
		{"suffix miss", Suffix(" - YouTube"), "YouTube - cats", "", false},
		{"suffix multibyte", Suffix(" — Mozilla Firefox"), "X — Mozilla Firefox", "X", true},
		{"glob hit keeps title", mustGlob("*.go - GVIM"), "main.go - GVIM", "main.go - GVIM", true},
		{"glob star stops at slash", mustGlob("*GitLab*"), "group/project GitLab", "", false},
		{"glob doublestar spans slash", mustGlob("**/*GitLab*"), "group/project GitLab", "group/project GitLab", true},
		{"glob miss", mustGlob("*.go - GVIM"), "notes.txt - GVIM", "", false},
		{"regex strips first match", mustRegex(`\(\d+\) `), "(3) inbox (4) x", "inbox (4) x", true},
		{"regex miss", mustRegex(`^\d+$`), "abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, ok := tt.matcher.Match(tt.title)
			if ok != tt.wantOK || rest != tt.wantRest {
				t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.title, rest, ok, tt.wantRest, tt.wantOK)
			}
		})
	}
}

func TestInvalidPatterns(t *testing.T) {
	if _, err := Glob("[unclosed"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Glob error = %v, want ErrInvalidRule", err)
	}
	if _, err := Regex("(unclosed"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Regex error = %v, want ErrInvalidRule", err)
	}
}

func TestMatcherDescribe(t *testing.T) {
	m, _ := Regex(`a+`)
	tests := []struct {
		m           Matcher
		kind, value string
	}{
		{Prefix("p"), "prefix", "p"},
		{Suffix("s"), "suffix", "s"},
		{m, "regex", "a+"},
	}
	for _, tt := range tests {
		if tt.m.Kind() != tt.kind || tt.m.Pattern() != tt.value {
			t.Errorf("got (%s, %s), want (%s, %s)", tt.m.Kind(), tt.m.Pattern(), tt.kind, tt.value)
		}
	}
}
