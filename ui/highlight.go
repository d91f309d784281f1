package ui

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"oxypaste/pkg/lang"
)

// Highlight renders content as ANSI-colored text for the read-only
// viewer. Unknown languages and formatter failures fall back to the
// unstyled source so a paste is always readable.
func Highlight(content string, language lang.Language, chromaStyle string) string {
	if language == lang.AutoDetect || language == lang.Plaintext {
		return content
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, content, language.ChromaName(), "terminal256", chromaStyle); err != nil {
		return content
	}
	return buf.String()
}

// numberLines prefixes each line with a right-aligned line number,
// mirroring the editor gutter so view and edit line up visually. The
// faint parameter takes a lipgloss style's Render directly.
func numberLines(rendered string, faint func(...string) string) string {
	lines := strings.Split(rendered, "\n")
	width := 1
	for n := len(lines); n >= 10; n /= 10 {
		width++
	}
	var buf strings.Builder
	for i, line := range lines {
		num := strconv.Itoa(i + 1)
		buf.WriteString(faint(strings.Repeat(" ", width-len(num)) + num + " │ "))
		buf.WriteString(line)
		if i < len(lines)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}
