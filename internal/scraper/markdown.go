package scraper

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

var descriptionPolicy = bluemonday.UGCPolicy()

// toMarkdown sanitizes a description fragment and renders it as Markdown,
// keeping headings, lists and emphasis.
func toMarkdown(html string) (string, error) {
	clean := descriptionPolicy.Sanitize(html)
	out, err := md.NewConverter("", true, nil).ConvertString(clean)
	if err != nil {
		return "", err
	}
	out = strings.ReplaceAll(out, "::marker", "-")
	return strings.TrimSpace(out), nil
}
