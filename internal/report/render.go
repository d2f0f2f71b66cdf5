package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Renderer writes a built report.
type Renderer interface {
	Render(w io.Writer, e Entry) error
}

// ForFormat returns the renderer for an analyze --format value.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return Text{}, nil
	case "json":
		return JSON{Indent: "  "}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want text or json)", format)
	}
}

// ///////////////////////////////////////////////
// Text
// ///////////////////////////////////////////////

// Text draws the report as an indented tree. Styling only applies when w is
// a terminal.
type Text struct{}

type textStyles struct {
	label, duration, other lipgloss.Style
}

// Render implements [Renderer].
func (Text) Render(w io.Writer, e Entry) error {
	r := lipgloss.NewRenderer(w)
	st := textStyles{
		label:    r.NewStyle().Bold(true),
		duration: r.NewStyle().Foreground(lipgloss.Color("6")),
		other:    r.NewStyle().Faint(true),
	}
	var b strings.Builder
	label := e.Label
	if label == "" {
		label = "total"
	}
	fmt.Fprintf(&b, "%s %s\n", st.label.Render(label), st.duration.Render(FormatDuration(e.Duration)))
	writeChildren(&b, st, e, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, st textStyles, e Entry, indent string) {
	for i, c := range e.Children {
		last := i == len(e.Children)-1 && !e.HasOther
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(b, "%s%s%s %s\n", indent, branch, st.label.Render(c.Label), st.duration.Render(FormatDuration(c.Duration)))
		writeChildren(b, st, c, indent+next)
	}
	if !e.HasOther {
		return
	}
	fmt.Fprintf(b, "%s└── %s %s", indent, st.other.Render("other"), st.duration.Render(FormatDuration(e.Other)))
	for i, ex := range e.Examples {
		sep := ", "
		if i == 0 {
			sep = " "
		}
		b.WriteString(sep)
		b.WriteString(strconv.Quote(ex.Text))
	}
	b.WriteString("\n")
}

// ///////////////////////////////////////////////
// JSON
// ///////////////////////////////////////////////

// JSON writes the report as a single JSON document.
type JSON struct {
	Indent string
}

type jsonEntry struct {
	Label    string      `json:"label"`
	Seconds  int64       `json:"seconds"`
	Duration string      `json:"duration"`
	Other    *jsonOther  `json:"other,omitempty"`
	Children []jsonEntry `json:"children,omitempty"`
}

type jsonOther struct {
	Seconds  int64         `json:"seconds"`
	Examples []jsonExample `json:"examples,omitempty"`
}

type jsonExample struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
	Side  string `json:"side"`
}

// Render implements [Renderer].
func (j JSON) Render(w io.Writer, e Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", j.Indent)
	return enc.Encode(toJSON(e))
}

func toJSON(e Entry) jsonEntry {
	out := jsonEntry{
		Label:    e.Label,
		Seconds:  int64(e.Duration.Seconds()),
		Duration: FormatDuration(e.Duration),
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, toJSON(c))
	}
	if e.HasOther {
		out.Other = &jsonOther{Seconds: int64(e.Other.Seconds())}
		for _, ex := range e.Examples {
			out.Other.Examples = append(out.Other.Examples, jsonExample(ex))
		}
	}
	return out
}
