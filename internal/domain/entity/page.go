package entity

// PageContent is what web_scrape extracts from a fetched document.
type PageContent struct {
	URL      string        `json:"url"`
	Status   int           `json:"status"`
	Title    string        `json:"title,omitempty"`
	Text     string        `json:"text,omitempty"`
	Links    []Link        `json:"links,omitempty"`
	Selector string        `json:"selector,omitempty"`
	Elements []PageElement `json:"elements,omitempty"`
}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type PageElement struct {
	Tag  string            `json:"tag"`
	Text string            `json:"text"`
	Attr map[string]string `json:"attr,omitempty"`
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
