package feed

import (
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// SnippetExtractor derives a short plain-text snippet from a post's HTML
// description or content, for display next to recent posts.
type SnippetExtractor struct{}

func NewSnippetExtractor() *SnippetExtractor {
	return &SnippetExtractor{}
}

// Run extracts the readable text of the given HTML fragment and truncates
// it to limit runes, appending an ellipsis when cut. Returns an empty
// string when nothing readable could be extracted.
func (e *SnippetExtractor) Run(html string, limit int) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	// Readability expects a document, not a fragment.
	doc := "<html><body><article>" + html + "</article></body></html>"

	text := ""
	if article, err := readability.FromReader(strings.NewReader(doc), nil); err == nil {
		text = article.TextContent
	}
	if text == "" {
		// Fragments too small for the readability heuristics fall back to
		// the raw input, which may already be plain text.
		if !strings.Contains(html, "<") {
			text = html
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}

	return text
}
