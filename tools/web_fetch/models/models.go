package models

import (
	"fmt"

	"github.com/mohammad-safakhou/researcher/utils"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TruncationMarker is appended to content cut at the character budget.
const TruncationMarker = "\n\n... [Content truncated to fit model limits]"

// Result is the structured outcome of one fetch.
type Result struct {
	URL          string `json:"url"`
	Status       string `json:"status"`
	Content      string `json:"content,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Title        string `json:"title,omitempty"`
	HTTPStatus   int    `json:"http_status,omitempty"`
	RenderMS     int    `json:"render_ms,omitempty"`
}

// Success builds a successful result, cutting content at maxChars runes and
// appending TruncationMarker when it does.
func Success(url, content string, maxChars int) Result {
	if cut, truncated := utils.Truncate(content, maxChars); truncated {
		content = cut + TruncationMarker
	}
	return Result{URL: url, Status: StatusSuccess, Content: content}
}

// Failure builds the error variant. The message keeps the
// "Failed to fetch <url>: <err>" shape that downstream stages look for.
func Failure(url string, err error) Result {
	return Result{
		URL:          url,
		Status:       StatusError,
		ErrorMessage: fmt.Sprintf("Failed to fetch %s: %v", url, err),
	}
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

// Text returns the content on success and the error message otherwise.
func (r Result) Text() string {
	if r.OK() {
		return r.Content
	}
	return r.ErrorMessage
}

// Map is the tool response handed back to the model.
func (r Result) Map() map[string]any {
	if !r.OK() {
		return map[string]any{"status": StatusError, "error_message": r.ErrorMessage}
	}
	out := map[string]any{
		"status":  StatusSuccess,
		"content": r.Content,
		"url":     r.URL,
		"length":  len([]rune(r.Content)),
	}
	if r.Title != "" {
		out["title"] = r.Title
	}
	return out
}
