package telegram

import (
	"strings"
	"unicode/utf8"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// Escape makes user-supplied text safe inside a legacy Markdown message.
func Escape(text string) string {
	return markdownEscaper.Replace(text)
}

// Truncate cuts text to at most maxLen runes, marking the cut.
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	const marker = "\n\n... (truncated)"
	runes := []rune(text)
	// Leave room for FixMarkdown to close a code block.
	keep := maxLen - utf8.RuneCountInString(marker) - 4
	if keep < 0 {
		keep = 0
	}
	return FixMarkdown(string(runes[:keep])) + marker
}

// FixMarkdown closes an unbalanced inline code span or bold run left behind
// by truncation.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}
	for _, marker := range []string{"`", "*"} {
		if countUnescaped(text, marker)%2 != 0 {
			text += marker
		}
	}
	return text
}

func countUnescaped(text, marker string) int {
	n := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(text[i:], "```") {
			i += 2
			continue
		}
		if strings.HasPrefix(text[i:], marker) {
			n++
		}
	}
	return n
}
