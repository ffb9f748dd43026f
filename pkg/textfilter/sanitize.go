package textfilter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	jsScheme    = regexp.MustCompile(`(?i)javascript:`)
)

// Sanitize strips script blocks and javascript: schemes and trims the result.
// It runs on player input before it reaches the narrator and on every
// narrator reply before it is stored or shown.
func Sanitize(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = jsScheme.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// TrimRunes cuts s to at most n runes.
func TrimRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
