package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/internal/extract"
	"github.com/mohammad-safakhou/researcher/internal/helpers"
	"github.com/mohammad-safakhou/researcher/internal/retrieval"
	"github.com/mohammad-safakhou/researcher/models"
	"github.com/mohammad-safakhou/researcher/provider/llm"
)

const (
	SearchInstruction = `You are a search agent. For the given query, call the search tool to get the top 3 relevant web results.
After receiving the results, respond ONLY with a valid JSON array of the top 3 results, formatted as:
[
    {"title": "page title", "link": "url", "snippet": "brief description"}
]
Do not include any additional text outside the JSON.`

	FetchInstruction = `You are a fetch agent. Given a URL, call the fetch_url tool to retrieve the full text content of the webpage.
After fetching, respond ONLY with the entire fetched text content. Do not summarize or add commentary.`

	SummarizerInstruction = `You are a summarizer agent. Summarize the provided webpage content (which may be long) into 3-5 concise bullet points.
Focus on key facts, insights, main arguments, and relevance to the research topic.
Output only the bullet points, no introduction.`

	ComparisonInstruction = `You are a comparison agent. Given summaries from multiple sources, create a markdown table comparing them.
Columns: | Source | Summary | Pros | Cons |
For each source, briefly extract 1-2 pros and cons based on the summary's content, focusing on strengths/weaknesses in approach, insights, or applicability.
If only one source, still create the table. Output only the markdown table.`
)

// Placeholders returned when a stage produces nothing.
const (
	UnableToSummarize      = "Unable to summarize the content."
	DefaultComparisonTable = "| Source | Summary | Pros | Cons |\n|--------|---------|------|------|\n| None | No data | N/A | N/A |"
	DefaultSummaryInput    = 10000
)

func NewSearchAgent(model string, tools ...llm.Tool) Agent {
	return Agent{Name: "search_agent", Model: model, Instruction: SearchInstruction, Tools: tools}
}

func NewFetchAgent(model string, tools ...llm.Tool) Agent {
	return Agent{Name: "fetch_agent", Model: model, Instruction: FetchInstruction, Tools: tools}
}

func NewSummarizerAgent(model string) Agent {
	return Agent{Name: "summarizer_agent", Model: model, Instruction: SummarizerInstruction}
}

func NewComparisonAgent(model string) Agent {
	return Agent{Name: "comparison_agent", Model: model, Instruction: ComparisonInstruction}
}

// Workers runs the four pipeline agents. Generation failures become the
// stage placeholder; only context errors are returned.
type Workers struct {
	Runner            *Runner
	Search            Agent
	Fetch             Agent
	Summarizer        Agent
	Comparison        Agent
	SummaryInputChars int
	Logger            *zap.Logger
}

func (w *Workers) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// run converts a generation error into an empty answer unless the context
// is done.
func (w *Workers) run(ctx context.Context, a Agent, message string) (string, error) {
	text, err := w.Runner.Run(ctx, a, message)
	if err == nil {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	w.logger().Warn("agent call failed", zap.String("agent", a.Name), zap.Error(err))
	return "", nil
}

// Discover asks the search agent for candidates. Blank output means no
// candidates.
func (w *Workers) Discover(ctx context.Context, topic string) ([]models.CandidateSource, error) {
	text, err := w.run(ctx, w.Search, "Search for: "+topic)
	if err != nil {
		return nil, err
	}
	w.logger().Debug("search agent raw response", zap.String("response", text))
	return extract.Candidates(text, topic), nil
}

// Retrieve is the agent mediated fetch used as the primary retrieval path.
func (w *Workers) Retrieve(ctx context.Context, url string) retrieval.Result {
	placeholder := fmt.Sprintf("Failed to fetch content from %s", url)
	text, err := w.run(ctx, w.Fetch, "Fetch the content from this URL: "+url)
	switch {
	case err != nil:
		return retrieval.Failed(err.Error())
	case text == "":
		return retrieval.Result{Content: placeholder, Reason: "empty agent output", Via: models.RetrievalFailed}
	default:
		return retrieval.Succeeded(text)
	}
}

// Summarize condenses content into bullet points. Content over the input
// budget is narrowed to the passages most relevant to topic.
func (w *Workers) Summarize(ctx context.Context, content, topic string) (string, error) {
	budget := w.SummaryInputChars
	if budget <= 0 {
		budget = DefaultSummaryInput
	}
	text := helpers.FocusText(content, topic, budget)
	out, err := w.run(ctx, w.Summarizer, "Summarize this content:\n\n"+text)
	if err != nil {
		return "", err
	}
	if out == "" {
		return UnableToSummarize, nil
	}
	return out, nil
}

// Compare builds the comparison table over all summaries.
func (w *Workers) Compare(ctx context.Context, summaries []models.SourceSummary) (string, error) {
	out, err := w.run(ctx, w.Comparison, CompareInput(summaries))
	if err != nil {
		return "", err
	}
	if out == "" {
		return DefaultComparisonTable, nil
	}
	return out, nil
}

// CompareInput renders summaries in the fixed comparison prompt layout.
func CompareInput(summaries []models.SourceSummary) string {
	var b strings.Builder
	b.WriteString("Compare these sources:\n\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "Source: %s\nSummary: %s\n\n", s.Source, s.Summary)
	}
	return b.String()
}
