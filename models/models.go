package models

import (
	"strings"
)

// NotAvailable is printed for report fields that could not be extracted.
const NotAvailable = "N/A"

// CandidateSource is a discovered reference eligible for retrieval.
// An empty Link is the null link: the candidate is kept only so the
// orchestrator can report and skip it.
type CandidateSource struct {
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	Snippet string `json:"snippet"`
}

// HasLink reports whether the candidate can be retrieved.
func (c CandidateSource) HasLink() bool { return strings.TrimSpace(c.Link) != "" }

// RetrievalPath records which retrieval path produced a summary's input.
type RetrievalPath string

const (
	RetrievedPrimary   RetrievalPath = "primary"
	RetrievedSecondary RetrievalPath = "secondary"
	RetrievalFailed    RetrievalPath = "failed"
)

// SourceSummary is the summarization output for one candidate.
type SourceSummary struct {
	Source    string        `json:"source"`
	Summary   string        `json:"summary"`
	Retrieval RetrievalPath `json:"retrieval"`
}

// ComparisonRow is one parsed row of the comparison table.
type ComparisonRow struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
	Pros    string `json:"pros"`
	Cons    string `json:"cons"`
}

// ReportBlock is the rendered view of one source.
type ReportBlock struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
	Pros    string `json:"pros"`
	Cons    string `json:"cons"`
}

// Report is the final research output, one block per summarized source in
// candidate order.
type Report struct {
	Topic  string        `json:"topic"`
	Blocks []ReportBlock `json:"blocks"`
}

const blockSeparatorWidth = 60

// String renders the report in the plain console layout.
func (r Report) String() string {
	lines := make([]string, 0, len(r.Blocks)*5)
	for _, b := range r.Blocks {
		lines = append(lines,
			"Source: "+b.Source,
			"Summary: "+b.Summary,
			"Pros: "+b.Pros,
			"Cons: "+b.Cons,
			strings.Repeat("-", blockSeparatorWidth),
		)
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the report as markdown for terminal rendering.
func (r Report) Markdown() string {
	var b strings.Builder
	if r.Topic != "" {
		b.WriteString("# ")
		b.WriteString(r.Topic)
		b.WriteString("\n\n")
	}
	for _, blk := range r.Blocks {
		b.WriteString("## ")
		b.WriteString(blk.Source)
		b.WriteString("\n\n")
		b.WriteString(blk.Summary)
		b.WriteString("\n\n**Pros:** ")
		b.WriteString(blk.Pros)
		b.WriteString("\n\n**Cons:** ")
		b.WriteString(blk.Cons)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}
