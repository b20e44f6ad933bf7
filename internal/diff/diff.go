// Package diff produces line based unified diff hunks.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines kept around each change.
const ContextLines = 3

// Hunks returns the unified hunks turning oldText into newText, in order. Identical
// inputs give no hunks; an empty oldText gives a single hunk adding the whole file.
func Hunks(oldText, newText string) []string {
	if oldText == newText {
		return nil
	}

	a := splitLines(oldText)
	b := splitLines(newText)

	m := difflib.NewMatcher(a, b)
	groups := m.GetGroupedOpCodes(ContextLines)

	hunks := make([]string, 0, len(groups))
	for _, group := range groups {
		hunks = append(hunks, formatHunk(a, b, group))
	}
	return hunks
}

// Indexed keys hunks by their position, "0", "1", ...
func Indexed(hunks []string) map[string]string {
	out := make(map[string]string, len(hunks))
	for i, h := range hunks {
		out[strconv.Itoa(i)] = h
	}
	return out
}

func formatHunk(a, b []string, group []difflib.OpCode) string {
	var sb strings.Builder

	first, last := group[0], group[len(group)-1]
	fmt.Fprintf(&sb, "@@ -%s +%s @@\n", formatRange(first.I1, last.I2), formatRange(first.J1, last.J2))

	for _, c := range group {
		switch c.Tag {
		case 'e':
			writeLines(&sb, ' ', a[c.I1:c.I2])
		case 'r':
			writeLines(&sb, '-', a[c.I1:c.I2])
			writeLines(&sb, '+', b[c.J1:c.J2])
		case 'd':
			writeLines(&sb, '-', a[c.I1:c.I2])
		case 'i':
			writeLines(&sb, '+', b[c.J1:c.J2])
		}
	}
	return sb.String()
}

func writeLines(sb *strings.Builder, prefix byte, lines []string) {
	for _, line := range lines {
		sb.WriteByte(prefix)
		sb.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			sb.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

// unified ranges are 1 based; an empty range points at the line before it
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return strconv.Itoa(beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
