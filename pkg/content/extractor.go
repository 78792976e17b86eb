package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"episode-crawler/pkg/domain"
)

var errEmptyHTML = errors.New("empty HTML content")

// Detail holds the fields read from an episode detail page.
type Detail struct {
	Description  string
	DownloadLink string
}

// Extractor reads listing entries and detail fields from page HTML.
type Extractor struct {
	sel                 Selectors
	readabilityFallback bool
}

// NewExtractor creates an extractor. Empty selectors fall back to
// DefaultSelectors.
func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel.withDefaults()}
}

// SetReadabilityFallback makes Detail fall back to readability text when the
// description block is missing.
func (e *Extractor) SetReadabilityFallback(enabled bool) {
	e.readabilityFallback = enabled
}

// Selectors returns the effective selectors.
func (e *Extractor) Selectors() Selectors {
	return e.sel
}

// ListingEntries returns the rendered listing entries in document order
// (newest first on the listing page). Detail links are resolved against
// pageURL. An entry without a title element is kept with an empty title so
// that callers still see it as the oldest rendered entry.
func (e *Extractor) ListingEntries(htmlContent, pageURL string) ([]domain.ListingEntry, error) {
	doc, err := parse(htmlContent)
	if err != nil {
		return nil, err
	}

	var entries []domain.ListingEntry
	doc.Find(e.sel.Entry).Each(func(_ int, item *goquery.Selection) {
		entry := domain.ListingEntry{
			RawTitle: item.Find(e.sel.Title).First().Text(),
			RawDate:  strings.TrimSpace(item.Find(e.sel.Date).First().Text()),
		}
		if href, ok := item.Find(e.sel.MoreLink).First().Attr("href"); ok {
			entry.DetailURL = resolve(pageURL, href)
		}
		entries = append(entries, entry)
	})

	return entries, nil
}

// Detail extracts the description and download link from a detail page.
//
// The description is the first text block of the first content block. The
// download link is read only when the page has exactly one content block;
// several blocks mean an atypical layout where the audio embed cannot be
// attributed reliably. Missing elements yield empty fields, not errors.
func (e *Extractor) Detail(htmlContent, pageURL string) (Detail, error) {
	doc, err := parse(htmlContent)
	if err != nil {
		return Detail{}, err
	}

	var d Detail
	blocks := doc.Find(e.sel.ContentBlock)

	if text := blocks.First().Find(e.sel.TextBlock).First(); text.Length() > 0 {
		d.Description = strings.TrimSpace(text.Text())
	}

	if blocks.Length() == 1 {
		if link, ok := blocks.Find(e.sel.AudioEmbed).First().Attr(e.sel.AudioAttr); ok {
			d.DownloadLink = strings.TrimSpace(link)
		}
	}

	if d.Description == "" && e.readabilityFallback {
		if text, err := ExtractText(htmlContent, pageURL); err == nil {
			d.Description = text
		}
	}

	return d, nil
}

// ExtractText extracts the main readable text from HTML content.
func ExtractText(htmlContent, pageURL string) (string, error) {
	var base *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			base = u
		}
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

func parse(htmlContent string) (*goquery.Document, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, errEmptyHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// resolve makes href absolute against base. Unparsable input is returned
// unchanged.
func resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == "" {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
