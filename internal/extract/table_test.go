package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `| Source | Summary | Pros | Cons |
|--------|---------|------|------|
| https://a.example/post | Covers agents | Clear<br>Concise | Dated\nShort |
| [B docs](https://b.example/docs/?utm_source=x) | Reference | Complete <br/> Official | Dense |
| https://c.example | too | few |
`

func TestRowLiteralMatch(t *testing.T) {
	t.Parallel()
	row, ok := Row(sampleTable, "https://a.example/post")
	require.True(t, ok)
	assert.Equal(t, "https://a.example/post", row.Source)
	assert.Equal(t, "Covers agents", row.Summary)
	assert.Equal(t, "Clear\nConcise", row.Pros)
	assert.Equal(t, "Dated\nShort", row.Cons)
}

func TestRowCanonicalMatch(t *testing.T) {
	t.Parallel()
	row, ok := Row(sampleTable, "https://B.example/docs")
	require.True(t, ok)
	assert.Equal(t, "Reference", row.Summary)
	assert.Equal(t, "Complete \n Official", row.Pros)
}

func TestRowMisses(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		table  string
		source string
	}{
		{name: "unknown source", table: sampleTable, source: "https://z.example"},
		{name: "too few columns", table: sampleTable, source: "https://c.example"},
		{name: "empty table", table: "", source: "https://a.example/post"},
		{name: "not a table", table: "https://a.example/post is great", source: "https://a.example/post"},
		{name: "empty source", table: sampleTable, source: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := Row(tt.table, tt.source)
			assert.False(t, ok)
		})
	}
}

func TestRowSkipsShortMatchForLaterFullRow(t *testing.T) {
	t.Parallel()
	table := "| https://d.example | only |\n  | https://d.example | s | p | c |  \n"
	row, ok := Row(table, "https://d.example")
	require.True(t, ok)
	assert.Equal(t, "p", row.Pros)
	assert.Equal(t, "c", row.Cons)
}
