package feed

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"
)

// Parser normalizes RSS/Atom documents into posts.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses feed data and returns metadata and normalized posts in feed
// order. Posts with unparseable dates are kept (PublishedAt nil) so that
// display surfaces can still show them verbatim.
func (p *Parser) Run(data []byte) (*Metadata, []Post, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
	}

	posts := make([]Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		posts = append(posts, p.normalizeItem(item))
	}

	slog.Debug("Feed parsed", "title", metadata.Title, "items", len(posts))

	return metadata, posts, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Post {
	post := Post{
		Title:       item.Title,
		Link:        item.Link,
		Published:   coalesce(item.Published, item.Updated),
		Description: item.Description,
		Content:     item.Content,
	}

	if item.PublishedParsed != nil {
		post.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		post.PublishedAt = item.UpdatedParsed
	}

	return post
}

// coalesce returns the first non-empty string from the provided values.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
