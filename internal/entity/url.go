package entity

import "github.com/user/crawl-engine/pkg/utils"

// CrawlKey is the canonical identity of a URL used for deduplication.
type CrawlKey string

// URL is a crawl target as it travels through the frontier.
type URL struct {
	Raw   string   `json:"url"`
	Key   CrawlKey `json:"key"`
	Depth int      `json:"depth"`
}

// NewURL normalizes raw and returns the URL at the given depth.
// Only absolute http and https URLs are accepted.
func NewURL(raw string, depth int) (URL, error) {
	normalized, err := utils.NormalizeURL(raw)
	if err != nil {
		return URL{}, err
	}
	return URL{Raw: normalized, Key: CrawlKey(normalized), Depth: depth}, nil
}

func (u URL) String() string {
	return u.Raw
}
