package helpers

import (
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve"
)

// ContentTruncatedMarker is appended whenever FocusText drops content.
const ContentTruncatedMarker = "\n... (content truncated)"

const minFocusChunk = 200

type focusChunk struct {
	Text string `json:"text"`
}

// FocusText fits text into budget runes. Short text is returned as is.
// Longer text is split into chunks that are ranked against query with an
// in-memory bleve index; the first chunk is always kept and the best
// ranked chunks fill the rest of the budget in their original order. When
// ranking is not possible the head of the text is kept instead.
func FocusText(text, query string, budget int) string {
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return text
	}

	room := budget
	if strings.TrimSpace(query) != "" {
		if focused, ok := rankChunks(runes, query, room); ok {
			return focused + ContentTruncatedMarker
		}
	}
	return string(runes[:budget]) + ContentTruncatedMarker
}

func rankChunks(runes []rune, query string, room int) (string, bool) {
	size := room / 5
	if size < minFocusChunk {
		size = minFocusChunk
	}
	chunks := makeChunks(runes, size)
	if len(chunks) < 2 {
		return "", false
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return "", false
	}
	defer index.Close()
	for i, c := range chunks {
		if err := index.Index(strconv.Itoa(i), focusChunk{Text: c}); err != nil {
			return "", false
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), len(chunks), 0, false)
	res, err := index.Search(req)
	if err != nil || len(res.Hits) == 0 {
		return "", false
	}

	keep := []int{0}
	used := len([]rune(chunks[0]))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i == 0 {
			continue
		}
		n := len([]rune(chunks[i])) + 1
		if used+n > room {
			continue
		}
		keep = append(keep, i)
		used += n
	}
	sort.Ints(keep)

	parts := make([]string, len(keep))
	for j, i := range keep {
		parts[j] = chunks[i]
	}
	return strings.Join(parts, "\n"), true
}

func makeChunks(runes []rune, size int) []string {
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
