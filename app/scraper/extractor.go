package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	log "github.com/go-pkgz/lgr"
)

// Posting is a single extracted job entry. Empty fields mean the selector
// matched nothing inside the container and are stored as NULL.
type Posting struct {
	Title    string
	Location string
	Link     string
}

// ExtractionError reports an unusable CSS selector. Missing matches are not
// errors, only selectors that fail to compile.
type ExtractionError struct {
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("bad selector %q: %v", e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract parses html and returns one Posting per element matched by the job
// selector, in document order. Title, location and link selectors are queried
// inside each matched container only. A relative link href is resolved
// against sourceURL. Zero matched containers yields an empty, non-nil slice.
func Extract(html, sourceURL string, sel Selectors) ([]Posting, error) {
	jobM, err := compile(sel.Job)
	if err != nil {
		return nil, err
	}
	titleM, err := compile(sel.Title)
	if err != nil {
		return nil, err
	}
	locationM, err := compile(sel.Location)
	if err != nil {
		return nil, err
	}
	linkM, err := compile(sel.Link)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url %s: %w", sourceURL, err)
	}

	postings := []Posting{}
	doc.FindMatcher(jobM).Each(func(i int, container *goquery.Selection) {
		p := Posting{
			Title:    strings.TrimSpace(container.FindMatcher(titleM).First().Text()),
			Location: strings.TrimSpace(container.FindMatcher(locationM).First().Text()),
		}
		if href, ok := container.FindMatcher(linkM).First().Attr("href"); ok {
			p.Link = resolveLink(base, href)
		}
		postings = append(postings, p)
	})

	log.Printf("[DEBUG] extracted %d postings from %s", len(postings), sourceURL)
	return postings, nil
}

// compile turns a CSS selector string into a goquery matcher. goquery's own
// Find panics on malformed selectors, compiling with cascadia keeps it an error.
func compile(selector string) (goquery.Matcher, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &ExtractionError{Selector: selector, Err: err}
	}
	return m, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		log.Printf("[WARN] unparseable href %q, dropped", href)
		return ""
	}
	return base.ResolveReference(ref).String()
}
