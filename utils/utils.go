package utils

import (
	"fmt"
	"net/url"
	"strings"
)

func UrlQuery(s string) string { return url.QueryEscape(strings.TrimSpace(s)) }

func Str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Truncate cuts s to at most max runes. It reports whether anything was cut.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}
