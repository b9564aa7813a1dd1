package httpapi

import (
	"fmt"
	"strings"

	"HNFilter/internal/domain"
)

// RenderMarkdown lists matched articles as a Markdown document, one nested
// bullet per matched topic. An empty list renders as an empty string.
func RenderMarkdown(articles []domain.MatchedArticle) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Verified Hacker News Links\n\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "- [%s](%s)\n", a.Article.Title, a.Article.URL)
		for _, m := range a.Matches {
			fmt.Fprintf(&b, "  - Matched Topic: %s (%s)\n", m.Topic, m.Relevance())
		}
	}
	return b.String()
}
