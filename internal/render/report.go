package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/starford/physiodesk/internal/clinic"
)

// markdown escapes raw HTML found in the input (WithUnsafe is not set).
var markdown = goldmark.New()

// ReportMarkdown summarises a snapshot as Markdown: counts, patients per
// condition, and plans per patient name.
func ReportMarkdown(s clinic.Snapshot) string {
	var b strings.Builder
	b.WriteString("# Clinic report\n\n")
	for _, line := range CountLines(s.Counts()) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n## Patients by condition\n\n")
	byCondition := make(map[string]int)
	for _, p := range s.Patients {
		byCondition[p.Condition]++
	}
	writeTally(&b, byCondition, "No patients yet.")

	b.WriteString("\n## Exercise plans by patient\n\n")
	byPatient := make(map[string]int)
	for _, p := range s.Plans {
		byPatient[p.Patient]++
	}
	writeTally(&b, byPatient, "No exercise plans yet.")
	return b.String()
}

func writeTally(b *strings.Builder, tally map[string]int, empty string) {
	if len(tally) == 0 {
		b.WriteString(empty + "\n")
		return
	}
	names := make([]string, 0, len(tally))
	for n := range tally {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(b, "- %s: %d\n", escapeMarkdown(n), tally[n])
	}
}

// escapeMarkdown makes free text render literally: every ASCII punctuation
// character is backslash-escaped, which covers list markers ("- ", "+ ",
// "1."), entities ("&amp;") and inline markup, and line breaks become
// spaces so a value cannot start a new block.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
			continue
		case r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r)):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReportHTML converts ReportMarkdown to HTML.
func ReportHTML(s clinic.Snapshot) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(ReportMarkdown(s)), &buf); err != nil {
		return "", fmt.Errorf("render: report: %w", err)
	}
	return template.HTML(buf.String()), nil
}
