package application

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxHeadingRunes is the exclusive upper bound on the length of a line that
// can be promoted to a heading.
const maxHeadingRunes = 50

// ws matches the whitespace OCR output contains in practice, including the
// ideographic space used in Japanese text.
const ws = `[\s\p{Z}]`

var (
	chapterPattern    = regexp.MustCompile(`(?i)^(chapter|section|part|第` + ws + `*\d+` + ws + `*[章節])`)
	enumeratorPattern = regexp.MustCompile(`^(\d+(\.\d+)*` + ws + `+|[A-Z]\.` + ws + `+)`)
	bulletPattern     = regexp.MustCompile(`^[•\-*+◦○●■□▪▫]` + ws + `+`)
	numberedPattern   = regexp.MustCompile(`^\d+[.)]` + ws + `+`)
)

// lineKind is the classification of a single trimmed OCR line.
type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading1
	lineHeading2
	lineHeading3
	lineBullet
	lineNumbered
	lineText
)

// formatState is the formatter's only memory: whether the last emitted line
// was a list item.
type formatState int

const (
	stateParagraph formatState = iota
	stateList
)

// FormatMarkdown converts line-oriented OCR text into Markdown. Each line is
// classified from itself and its immediate neighbours, then emitted in a
// single left-to-right pass:
//   - short lines standing alone become headings (level 1 for chapter/section
//     markers, level 2 for enumerated titles, level 3 otherwise)
//   - bullet glyph lines become "- " list items
//   - numbered lines are kept verbatim as list items
//   - everything else is emitted as-is
//
// A blank line separates a list from surrounding text. Feeding the output
// back through FormatMarkdown is not meaningful.
func FormatMarkdown(raw string) string {
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	var b strings.Builder
	b.Grow(len(raw) + len(raw)/4)

	state := stateParagraph
	for i, line := range lines {
		state = emitLine(&b, state, classifyLine(lines, i), line)
	}

	return b.String()
}

// classifyLine decides the kind of lines[i]. lines must already be trimmed.
func classifyLine(lines []string, i int) lineKind {
	line := lines[i]
	if line == "" {
		return lineBlank
	}

	if isHeadingCandidate(lines, i) {
		switch {
		case chapterPattern.MatchString(line):
			return lineHeading1
		case enumeratorPattern.MatchString(line):
			return lineHeading2
		default:
			return lineHeading3
		}
	}

	if bulletPattern.MatchString(line) {
		return lineBullet
	}
	if numberedPattern.MatchString(line) {
		return lineNumbered
	}
	return lineText
}

// isHeadingCandidate reports whether a non-blank line is short, starts a
// block, and is not followed by a shorter continuation.
func isHeadingCandidate(lines []string, i int) bool {
	if i > 0 && lines[i-1] != "" {
		return false
	}

	n := utf8.RuneCountInString(lines[i])
	if n >= maxHeadingRunes {
		return false
	}

	if i == len(lines)-1 {
		return true
	}
	next := lines[i+1]
	return next == "" || utf8.RuneCountInString(next) < n
}

// emitLine writes the Markdown for one classified line and returns the next state.
func emitLine(b *strings.Builder, state formatState, kind lineKind, line string) formatState {
	switch kind {
	case lineBlank:
		b.WriteByte('\n')
		return stateParagraph

	case lineHeading1, lineHeading2, lineHeading3:
		level := int(kind-lineHeading1) + 1
		b.WriteString(strings.Repeat("#", level))
		b.WriteByte(' ')
		b.WriteString(line)
		b.WriteString("\n\n")
		return stateParagraph

	case lineBullet:
		if state != stateList {
			b.WriteByte('\n')
		}
		loc := bulletPattern.FindStringIndex(line)
		b.WriteString("- ")
		b.WriteString(line[loc[1]:])
		b.WriteByte('\n')
		return stateList

	case lineNumbered:
		if state != stateList {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		b.WriteByte('\n')
		return stateList

	default:
		if state == stateList {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		b.WriteByte('\n')
		return stateParagraph
	}
}
