package helpers

import (
	"strings"
)

// FencedBlock returns the trimmed body of the first ``` or ~~~ fenced block
// in s. The info string after the opening fence is ignored.
func FencedBlock(s string) (string, bool) {
	s = trimBOM(s)
	best := -1
	fence := ""
	for _, f := range []string{"```", "~~~"} {
		if i := strings.Index(s, f); i != -1 && (best == -1 || i < best) {
			best, fence = i, f
		}
	}
	if best == -1 {
		return "", false
	}

	rest := s[best+len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, fence)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// BalancedSpan returns the first balanced span in s that opens with open
// ('[' or '{'). Brackets inside JSON strings are ignored.
func BalancedSpan(s string, open byte) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != open {
			continue
		}
		if span, ok := balancedFrom(s, i); ok {
			return span, true
		}
	}
	return "", false
}

func balancedFrom(s string, start int) (string, bool) {
	var (
		stack    = []byte{s[start]}
		inString bool
		escape   bool
	)
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
