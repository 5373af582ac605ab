package extract

import (
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/researcher/internal/helpers"
	"github.com/mohammad-safakhou/researcher/models"
)

const minTableColumns = 4

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	markdownLink = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
)

// Row finds the comparison-table row for source. A row matches when it
// contains source verbatim; failing that, when its first column points at
// the same canonical URL. Rows need at least four columns. ok is false on
// a miss and the caller falls back to the stage summary.
func Row(table, source string) (models.ComparisonRow, bool) {
	if strings.TrimSpace(source) == "" {
		return models.ComparisonRow{}, false
	}
	lines := tableLines(table)

	for _, line := range lines {
		if !strings.Contains(line, source) {
			continue
		}
		if row, ok := splitRow(line); ok {
			return row, true
		}
	}

	for _, line := range lines {
		row, ok := splitRow(line)
		if !ok {
			continue
		}
		if helpers.SameURL(linkTarget(row.Source), source) {
			return row, true
		}
	}
	return models.ComparisonRow{}, false
}

func tableLines(table string) []string {
	var out []string
	for _, line := range strings.Split(table, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "|") {
			out = append(out, line)
		}
	}
	return out
}

func splitRow(line string) (models.ComparisonRow, bool) {
	cols := strings.Split(strings.Trim(line, "|"), "|")
	if len(cols) < minTableColumns {
		return models.ComparisonRow{}, false
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return models.ComparisonRow{
		Source:  cols[0],
		Summary: unescapeCell(cols[1]),
		Pros:    unescapeCell(cols[2]),
		Cons:    unescapeCell(cols[3]),
	}, true
}

// unescapeCell turns <br> tags and literal \n sequences into newlines.
func unescapeCell(s string) string {
	s = lineBreakTag.ReplaceAllString(s, "\n")
	return strings.ReplaceAll(s, `\n`, "\n")
}

// linkTarget pulls the URL out of a first column written as a markdown
// link, a bare URL inside text, or the URL alone.
func linkTarget(cell string) string {
	if m := markdownLink.FindStringSubmatch(cell); m != nil {
		return m[1]
	}
	if u := helpers.FirstURL(cell); u != "" {
		return u
	}
	return cell
}
