package classify

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/pctracker/internal/migrate"
)

// ErrInvalidRule reports a rule that cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// Rule buckets titles accepted by Matcher under Label; Rules classify the
// remainder of the title further. Rules are tried in order and the first
// match wins.
type Rule struct {
	Label   string
	Matcher Matcher
	Rules   []Rule
}

// ///////////////////////////////////////////////
// Rules File
// ///////////////////////////////////////////////

// File is the on-disk shape of rules.toml.
type File struct {
	Version int        `toml:"version"`
	Rules   []RuleSpec `toml:"rules"`
}

// RuleSpec is one [[rules]] table. Exactly one of Prefix, Suffix, Glob or
// Regex must be set. An empty Label defaults to the quoted pattern.
type RuleSpec struct {
	Label  string     `toml:"label,omitempty"`
	Prefix string     `toml:"prefix,omitempty"`
	Suffix string     `toml:"suffix,omitempty"`
	Glob   string     `toml:"glob,omitempty"`
	Regex  string     `toml:"regex,omitempty"`
	Rules  []RuleSpec `toml:"rules,omitempty"`
}

// LoadFile reads, migrates and compiles the rules file at path.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	version := peekVersion(data)
	if migrate.Rules.NeedsMigration(version) {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write rules backup", "error", backupErr)
		}
		data, _, err = migrate.Rules.Run(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate rules: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and compiles rules TOML. Unknown keys are rejected so a
// misspelt matcher does not silently turn into a catch-all rule.
func Parse(data []byte) ([]Rule, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalidRule, strings.Join(keys, ", "))
	}
	return Compile(f.Rules)
}

// Compile turns specs into rules, validating each level.
func Compile(specs []RuleSpec) ([]Rule, error) {
	return compile(specs, "rules")
}

func compile(specs []RuleSpec, path string) ([]Rule, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		at := fmt.Sprintf("%s[%d]", path, i)
		m, err := spec.matcher()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at, err)
		}
		children, err := compile(spec.Rules, at+".rules")
		if err != nil {
			return nil, err
		}
		label := spec.Label
		if label == "" {
			label = strconv.Quote(m.Pattern())
		}
		rules = append(rules, Rule{Label: label, Matcher: m, Rules: children})
	}
	return rules, nil
}

func (s RuleSpec) matcher() (Matcher, error) {
	var (
		m   Matcher
		err error
		set int
	)
	if s.Prefix != "" {
		m, set = Prefix(s.Prefix), set+1
	}
	if s.Suffix != "" {
		m, set = Suffix(s.Suffix), set+1
	}
	if s.Glob != "" {
		m, err = Glob(s.Glob)
		set++
	}
	if s.Regex != "" {
		m, err = Regex(s.Regex)
		set++
	}
	switch {
	case set == 0:
		return nil, fmt.Errorf("%w: one of prefix, suffix, glob or regex is required", ErrInvalidRule)
	case set > 1:
		return nil, fmt.Errorf("%w: only one matcher per rule is allowed", ErrInvalidRule)
	case err != nil:
		return nil, err
	}
	return m, nil
}

// peekVersion reads only the version key. Missing or zero means 1.
func peekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Listing
// ///////////////////////////////////////////////

// Fprint writes rules as an indented list, one rule per line.
func Fprint(w io.Writer, rules []Rule) error {
	return fprint(w, rules, 0)
}

func fprint(w io.Writer, rules []Rule, depth int) error {
	for _, r := range rules {
		_, err := fmt.Fprintf(w, "%s%s: %s %s\n",
			strings.Repeat("  ", depth), r.Label, r.Matcher.Kind(), strconv.Quote(r.Matcher.Pattern()))
		if err != nil {
			return err
		}
		if err := fprint(w, r.Rules, depth+1); err != nil {
			return err
		}
	}
	return nil
}
