// Package main implements genconfig, which writes config.default.toml from
// config.ExampleConfig() annotated with config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/pctracker/internal/config"
)

// header opens the generated file.
var header = []string{
	"# ///////////////////////////////////////////////",
	"# pctracker Configuration",
	"# ///////////////////////////////////////////////",
	"",
}

func main() {
	// go generate runs in internal/config; the embed lives at the repo root.
	outPath := flag.String("o", "../../config.default.toml", "output file")
	flag.Parse()

	result, err := generate(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

// generate encodes cfg and interleaves the documentation for each key.
func generate(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	g := &generator{docs: docs, emitted: map[string]bool{}}
	g.out = append(g.out, header...)
	for _, line := range strings.Split(raw.String(), "\n") {
		g.feed(strings.TrimSpace(line))
	}
	g.flushOmitted()
	return strings.TrimRight(strings.Join(g.out, "\n"), "\n") + "\n", nil
}

// ///////////////////////////////////////////////
// Generator
// ///////////////////////////////////////////////

// generator rewrites encoder output line by line. Spacing is its own; the
// encoder's blank lines and indentation are dropped.
type generator struct {
	docs    map[string]config.FieldDoc
	out     []string
	section []string
	emitted map[string]bool
}

func (g *generator) feed(line string) {
	switch {
	case line == "":
	case strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "[["):
		g.openSection(line)
	case strings.HasPrefix(line, "#") || !strings.Contains(line, "="):
		g.out = append(g.out, line)
	default:
		g.keyValue(line)
	}
}

func (g *generator) openSection(line string) {
	g.flushOmitted()
	name := strings.Trim(line, "[] ")
	g.section = parseSectionPath(name)
	g.out = append(g.out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
	if doc, ok := g.docs[name]; ok {
		g.comment(doc.Comment)
	}
	g.out = append(g.out, line)
}

func (g *generator) keyValue(line string) {
	key, _, _ := strings.Cut(line, "=")
	path := g.path(strings.TrimSpace(key))
	g.emitted[path] = true

	doc, ok := g.docs[path]
	if !ok {
		g.out = append(g.out, line)
		return
	}
	g.comment(doc.Comment)
	g.out = append(g.out, line)
	for _, alt := range doc.Alternatives {
		g.out = append(g.out, "# "+alt)
	}
}

func (g *generator) path(key string) string {
	if len(g.section) == 0 {
		return key
	}
	return strings.Join(g.section, ".") + "." + key
}

func (g *generator) comment(text string) {
	if text == "" {
		return
	}
	for _, cl := range strings.Split(text, "\n") {
		g.out = append(g.out, "# "+cl)
	}
}

// flushOmitted writes documented keys of the current section the encoder
// skipped (omitempty zero values) as comments, sorted by path.
func (g *generator) flushOmitted() {
	if len(g.section) == 0 {
		return
	}
	prefix := strings.Join(g.section, ".") + "."

	var omitted []string
	for path := range g.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || g.emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := g.docs[path]
		g.out = append(g.out, "")
		g.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			g.out = append(g.out, "# "+alt)
		}
		g.emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header into its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last segment of a section header, so
// "record" becomes "Record".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
