// Package logline turns raw process output into display lines.
package logline

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const tabWidth = 4

// Normalize strips terminal control sequences from raw. A carriage return
// inside the line keeps only the text after the last one, as a terminal would
// show it. The second result is false for lines that are blank afterwards.
func Normalize(raw string) (string, bool) {
	text := strings.TrimRight(raw, "\r\n")
	text = ansi.Strip(text)
	if idx := strings.LastIndexByte(text, '\r'); idx >= 0 {
		text = text[idx+1:]
	}
	text = expandTabs(text)
	text = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
	text = strings.TrimRight(text, " ")
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func expandTabs(text string) string {
	if !strings.Contains(text, "\t") {
		return text
	}
	var b strings.Builder
	col := 0
	for _, r := range text {
		if r == '\t' {
			pad := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
