package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reNUL        = regexp.MustCompile("\x00+")
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize unifies line endings and drops trailing spaces and runs of blank lines.
// Conservative: characters inside a line are never rewritten, so identifiers and amounts
// reach the prompt exactly as the PDF encodes them.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reNUL.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
