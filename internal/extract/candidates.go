// Package extract turns free-form generation output into typed records.
// Nothing here returns an error: malformed input degrades to a weaker but
// usable result.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/mohammad-safakhou/researcher/internal/helpers"
	"github.com/mohammad-safakhou/researcher/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

const snippetLimit = 200

type field struct {
	key   string
	value any
}

// Candidates parses the discover stage output. A JSON array of objects is
// accepted as is, inside a fenced block, or embedded in prose. Objects
// without a usable link get the first URL found in their string fields and
// are dropped when there is none. A fenced or embedded array counts only
// when it yields at least one candidate. Otherwise the first URL in the raw
// text becomes a single candidate titled after topic, and with no URL
// anywhere the single candidate has an empty link.
func Candidates(raw, topic string) []models.CandidateSource {
	text := strings.TrimSpace(raw)
	if text == "" {
		return []models.CandidateSource{}
	}

	if items, ok := decodeArray(text); ok {
		return fromObjects(items)
	}
	for _, attempt := range embeddedArrays(text) {
		items, ok := decodeArray(attempt)
		if !ok {
			continue
		}
		if found := fromObjects(items); len(found) > 0 {
			return found
		}
	}

	snippet, _ := utils.Truncate(text, snippetLimit)
	return []models.CandidateSource{{
		Title:   topic,
		Link:    helpers.FirstURL(text),
		Snippet: snippet,
	}}
}

// embeddedArrays returns the first fenced block and the first balanced
// bracket span, in that order.
func embeddedArrays(text string) []string {
	var out []string
	if block, ok := helpers.FencedBlock(text); ok {
		out = append(out, block)
	}
	if span, ok := helpers.BalancedSpan(text, '['); ok {
		out = append(out, span)
	}
	return out
}

func decodeArray(text string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

func fromObjects(items []json.RawMessage) []models.CandidateSource {
	out := make([]models.CandidateSource, 0, len(items))
	for _, item := range items {
		fields, ok := orderedFields(item)
		if !ok {
			continue
		}

		var c models.CandidateSource
		var strs []string
		for _, f := range fields {
			s, isString := f.value.(string)
			if isString {
				strs = append(strs, s)
			}
			switch f.key {
			case "title":
				c.Title = utils.Str(f.value)
			case "snippet":
				c.Snippet = utils.Str(f.value)
			case "link":
				if isString {
					c.Link = strings.TrimSpace(s)
				}
			}
		}
		if c.Link == "" {
			c.Link = helpers.FirstURL(strings.Join(strs, " "))
		}
		if c.HasLink() {
			out = append(out, c)
		}
	}
	return out
}

// orderedFields decodes a JSON object keeping its keys in document order.
// Later duplicates overwrite earlier ones, as encoding/json would.
func orderedFields(raw json.RawMessage) ([]field, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	var fields []field
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		if i, seen := index[key]; seen {
			fields[i].value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, false
	}
	return fields, true
}
