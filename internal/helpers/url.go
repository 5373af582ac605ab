package helpers

import (
	"errors"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
)

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// FirstURL returns the first http(s) URL in text with trailing '.' and ','
// removed, or "" when there is none.
func FirstURL(text string) string {
	m := urlPattern.FindString(text)
	return strings.TrimRight(m, ".,")
}

// CanonicalURL normalises a URL string for comparison. It lowercases
// scheme and host, drops default ports, fragments and tracking parameters,
// cleans the path and sorts the remaining query. Schemeless input is read
// as https.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}

	parsed, err := parseURLPreserveHost(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", errors.New("url missing host")
	}
	if port := parsed.Port(); port != "" {
		if !(parsed.Scheme == "http" && port == "80") && !(parsed.Scheme == "https" && port == "443") {
			host += ":" + port
		}
	}
	parsed.Host = host
	parsed.User = nil

	cleanPath := "/"
	if parsed.Path != "" {
		cleanPath = path.Clean("/" + parsed.Path)
		// keep an explicit trailing slash on non-root paths
		if cleanPath != "/" && strings.HasSuffix(parsed.Path, "/") {
			cleanPath += "/"
		}
	}
	parsed.Path = cleanPath
	parsed.RawPath = ""
	parsed.Fragment = ""
	parsed.RawQuery = canonicalQuery(parsed.Query())

	return parsed.String(), nil
}

// SameURL reports whether a and b canonicalise to the same URL.
func SameURL(a, b string) bool {
	ca, err := CanonicalURL(a)
	if err != nil {
		return false
	}
	cb, err := CanonicalURL(b)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(ca, "/") == strings.TrimSuffix(cb, "/")
}

func canonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			if value != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(value))
			}
		}
	}
	return b.String()
}

// parseURLPreserveHost parses raw, treating host-first input as https.
func parseURLPreserveHost(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		if strings.HasPrefix(raw, "//") {
			return url.Parse("https:" + raw)
		}
		return url.Parse("https://" + raw)
	}
	return parsed, nil
}
