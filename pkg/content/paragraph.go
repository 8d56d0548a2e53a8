package content

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ParagraphExtractor fetches a newsletter post page and joins the text of paragraphs
// found in its article (or main) container
type ParagraphExtractor struct {
	client    *http.Client
	userAgent string
}

// NewParagraphExtractor makes an extractor with the given bounded timeout
func NewParagraphExtractor(timeout time.Duration, userAgent string) *ParagraphExtractor {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.1 Safari/537.36"
	}
	return &ParagraphExtractor{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Extract fetches the page and returns paragraphs text separated by newlines.
// Returns ErrNoContent if the page has no article container or no paragraph text.
func (e *ParagraphExtractor) Extract(ctx context.Context, urlStr string) (string, error) {
	if _, err := validURL(urlStr); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	addBrowserHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode charset of %s: %w", urlStr, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse html of %s: %w", urlStr, err)
	}

	text := ParagraphsText(doc)
	if text == "" {
		return "", fmt.Errorf("%w from %s", ErrNoContent, urlStr)
	}
	return text, nil
}

// ParagraphsText returns text of <p> elements inside the first article element,
// or inside div[role=main] when the page has no article
func ParagraphsText(doc *goquery.Document) string {
	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find(`div[role="main"]`).First()
	}
	if container.Length() == 0 {
		return ""
	}

	var paragraphs []string
	container.Find("p").Each(func(_ int, s *goquery.Selection) {
		if txt := strings.TrimSpace(s.Text()); txt != "" {
			paragraphs = append(paragraphs, txt)
		}
	})
	return strings.TrimSpace(strings.Join(paragraphs, "\n"))
}
