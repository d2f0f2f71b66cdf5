package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher tests a window title. On a match it returns the title with the
// matched text removed, which is what child rules see next.
type Matcher interface {
	Match(title string) (rest string, ok bool)
	// Kind names the matcher type as written in the rules file.
	Kind() string
	// Pattern returns the pattern as written in the rules file.
	Pattern() string
}

// ///////////////////////////////////////////////
// Affix Matchers
// ///////////////////////////////////////////////

type prefixMatcher string

// Prefix matches titles starting with s and strips it.
func Prefix(s string) Matcher { return prefixMatcher(s) }

func (p prefixMatcher) Match(title string) (string, bool) {
	if rest, ok := strings.CutPrefix(title, string(p)); ok {
		return rest, true
	}
	return "", false
}

func (p prefixMatcher) Kind() string    { return "prefix" }
func (p prefixMatcher) Pattern() string { return string(p) }

type suffixMatcher string

// Suffix matches titles ending with s and strips it.
func Suffix(s string) Matcher { return suffixMatcher(s) }

func (s suffixMatcher) Match(title string) (string, bool) {
	if rest, ok := strings.CutSuffix(title, string(s)); ok {
		return rest, true
	}
	return "", false
}

func (s suffixMatcher) Kind() string    { return "suffix" }
func (s suffixMatcher) Pattern() string { return string(s) }

// ///////////////////////////////////////////////
// Pattern Matchers
// ///////////////////////////////////////////////

type globMatcher string

// Glob matches the whole title against a doublestar pattern. The title is
// passed on unchanged. As with paths, '/' separates segments: '*' stops at a
// slash and '**/' spans any number of them.
func Glob(pattern string) (Matcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: bad glob pattern %s", ErrInvalidRule, strconv.Quote(pattern))
	}
	return globMatcher(pattern), nil
}

func (g globMatcher) Match(title string) (string, bool) {
	// Validated in Glob, so Match cannot fail.
	if ok, _ := doublestar.Match(string(g), title); ok {
		return title, true
	}
	return "", false
}

func (g globMatcher) Kind() string    { return "glob" }
func (g globMatcher) Pattern() string { return string(g) }

type regexMatcher struct {
	re *regexp.Regexp
}

// Regex matches titles containing expr and removes the leftmost match.
func Regex(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return regexMatcher{re: re}, nil
}

func (r regexMatcher) Match(title string) (string, bool) {
	loc := r.re.FindStringIndex(title)
	if loc == nil {
		return "", false
	}
	return title[:loc[0]] + title[loc[1]:], true
}

func (r regexMatcher) Kind() string    { return "regex" }
func (r regexMatcher) Pattern() string { return r.re.String() }
