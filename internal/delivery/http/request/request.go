package request

// SeedRequest adds URLs to a running crawl. URL and URLs may be combined.
type SeedRequest struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

// All returns every URL in the request, URL first.
func (r SeedRequest) All() []string {
	var all []string
	if r.URL != "" {
		all = append(all, r.URL)
	}
	return append(all, r.URLs...)
}
