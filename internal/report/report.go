// Package report joins stage summaries with the comparison table and renders
// the final console output.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/mohammad-safakhou/researcher/internal/extract"
	"github.com/mohammad-safakhou/researcher/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

const (
	DefaultSummaryLimit = 1000
	unknownSource       = "Unknown source"

	header = "\n=== Formatted Results ===\n\n"
	footer = "\n\n=== End ===\n\n"
)

// Build produces one block per summary, in summary order. Table rows win for
// summary, pros and cons; a missing row or an empty cell falls back to the
// stage summary cut at limit runes and N/A.
func Build(topic string, summaries []models.SourceSummary, table string, limit int) models.Report {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	rep := models.Report{Topic: topic, Blocks: make([]models.ReportBlock, 0, len(summaries))}
	for _, s := range summaries {
		source := s.Source
		if strings.TrimSpace(source) == "" {
			source = unknownSource
		}
		block := models.ReportBlock{
			Source: source,
			Pros:   models.NotAvailable,
			Cons:   models.NotAvailable,
		}

		row, ok := extract.Row(table, s.Source)
		if ok && row.Summary != "" {
			block.Summary = row.Summary
		} else {
			block.Summary = fallbackSummary(s.Summary, limit)
		}
		if ok {
			block.Pros = orNA(row.Pros)
			block.Cons = orNA(row.Cons)
		}
		rep.Blocks = append(rep.Blocks, block)
	}
	return rep
}

func fallbackSummary(summary string, limit int) string {
	if summary == "" {
		return models.NotAvailable
	}
	cut, _ := utils.Truncate(summary, limit)
	return cut
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.NotAvailable
	}
	return s
}

// Options controls console rendering.
type Options struct {
	Markdown bool
	Terminal bool
	WordWrap int
}

// Render returns the report body. Markdown is only used on a terminal; a
// renderer failure degrades to the plain layout.
func Render(rep models.Report, opts Options) string {
	if !opts.Markdown || !opts.Terminal {
		return rep.String()
	}
	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return rep.String()
	}
	out, err := r.Render(rep.Markdown())
	if err != nil {
		return rep.String()
	}
	return strings.TrimRight(out, "\n")
}

// Block wraps body in the delimited results block printed to stdout.
func Block(body string) string {
	return header + body + footer
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the stdout width, or fallback when it is unknown.
func TerminalWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Describe is a one line summary used in logs.
func Describe(rep models.Report) string {
	return fmt.Sprintf("%d block(s) for %q", len(rep.Blocks), rep.Topic)
}
