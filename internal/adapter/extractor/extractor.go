package extractor

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
	"github.com/user/crawl-engine/pkg/utils"
)

// Extractor picks HTML or plain-text link extraction based on the content type.
// Results are absolute http(s) URLs, deduplicated and sorted, so extraction of the
// same content is deterministic.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractLinks returns the candidate links found in content.
func (e *Extractor) ExtractLinks(content *entity.Content) ([]string, error) {
	base, err := url.Parse(content.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base URL: %v", repository.ErrExtractionFailed, err)
	}

	var raw []string
	if isHTML(content) {
		raw, err = htmlLinks(content.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrExtractionFailed, err)
		}
	} else {
		raw = textLinks(content.Body)
	}

	return resolve(base, raw), nil
}

func isHTML(content *entity.Content) bool {
	if content.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(content.ContentType)
		if err == nil {
			return mediaType == "text/html" || mediaType == "application/xhtml+xml"
		}
	}
	head := bytes.ToLower(bytes.TrimSpace(content.Body[:min(len(content.Body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// htmlLinks collects href values from anchors and frames.
func htmlLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href], area[href]").Each(func(i int, s *goquery.Selection) {
		if rel, _ := s.Attr("rel"); strings.Contains(rel, "nofollow") {
			return
		}
		href, _ := s.Attr("href")
		links = append(links, href)
	})
	doc.Find("frame[src], iframe[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		links = append(links, src)
	})
	return links, nil
}

// textLinks treats every whitespace separated token starting with "http" as a link.
func textLinks(body []byte) []string {
	var links []string
	for _, word := range strings.Fields(string(body)) {
		if !strings.HasPrefix(word, "http") {
			continue
		}
		word = strings.TrimRight(word, `.,;:!?)]}>"'`)
		if u, err := url.Parse(word); err == nil && u.IsAbs() {
			links = append(links, word)
		}
	}
	return links
}

func resolve(base *url.URL, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, href := range raw {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			continue
		}
		normalized, err := utils.NormalizeURL(abs)
		if err != nil {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}
