package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

// ExtractedContent is the article content pulled from a fetched page.
type ExtractedContent struct {
	Title       string
	Description string
	Body        string
	// RawLength is the size of the HTML the body was extracted from, used
	// for markup density checks.
	RawLength int
}

// ContentExtractor extracts article content from HTML using goquery.
type ContentExtractor struct{}

// NewContentExtractor creates a new content extractor.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// nonContentSelectors lists elements to strip before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer, aside, form"

// Extract parses HTML and extracts article content. A parse failure comes
// back as *FetchError with the parse reason.
func (e *ContentExtractor) Extract(body []byte) (*ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Reason: domain.ReasonParseError, Err: err}
	}

	return &ExtractedContent{
		Title:       extractPageTitle(doc),
		Description: extractMetaDescription(doc),
		Body:        extractBodyText(doc),
		RawLength:   len(body),
	}, nil
}

// extractPageTitle prefers <title>, falling back to og:title.
func extractPageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}
	return ""
}

// extractMetaDescription extracts the description from meta tags.
func extractMetaDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}
	if ogDesc, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(ogDesc)
	}
	return ""
}

// extractBodyText prefers <article> content, falling back to <body> with
// non-content elements stripped.
func extractBodyText(doc *goquery.Document) string {
	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return collapseWhitespace(article.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return collapseWhitespace(body.Text())
	}
	return ""
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
