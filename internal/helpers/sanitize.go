package helpers

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// TextPolicy returns a shared policy that strips every element and
// attribute. Script and style bodies are dropped entirely, and a space is
// left where a tag was removed so adjacent blocks do not run together.
func TextPolicy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AddSpaceWhenStrippingTag(true)
		textPolicy = policy
	})
	return textPolicy
}

// PlainText turns an HTML document into readable text: tags stripped,
// entities decoded, runs of blanks collapsed and empty lines dropped.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	stripped := html.UnescapeString(TextPolicy().Sanitize(s))

	lines := strings.Split(stripped, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
