package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"task-agent/internal/domain/entity"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const (
	maxTextLen  = 8000
	maxLinks    = 100
	maxElements = 50
)

// skippedTags never contribute visible text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"iframe": true, "head": true, "template": true,
}

// Extract parses an HTML document. With an empty selector it returns the
// title, visible text and links; otherwise only the matching elements.
func Extract(rawHTML, pageURL, selector string) (*entity.PageContent, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &entity.PageContent{
		URL:   pageURL,
		Title: findTitle(doc),
	}
	base, _ := url.Parse(pageURL)

	if selector != "" {
		sel, err := cascadia.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		page.Selector = selector
		page.Elements = []entity.PageElement{}
		for _, n := range cascadia.QueryAll(doc, sel) {
			if len(page.Elements) >= maxElements {
				break
			}
			page.Elements = append(page.Elements, toElement(n, base))
		}
		return page, nil
	}

	page.Text = truncate(visibleText(findBody(doc)), maxTextLen)
	page.Links = collectLinks(doc, base)
	return page, nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return collapse(textOf(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(doc *html.Node) *html.Node {
	sel := cascadia.MustCompile("body")
	if body := cascadia.Query(doc, sel); body != nil {
		return body
	}
	return doc
}

// visibleText joins text nodes outside skipped tags, one block per line.
func visibleText(n *html.Node) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.ElementNode:
			if skippedTags[n.Data] {
				return
			}
		case html.TextNode:
			if t := collapse(n.Data); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(lines, "\n")
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collectLinks(doc *html.Node, base *url.URL) []entity.Link {
	seen := make(map[string]bool)
	var links []entity.Link
	for _, a := range cascadia.QueryAll(doc, cascadia.MustCompile("a[href]")) {
		if len(links) >= maxLinks {
			break
		}
		href := resolve(base, attr(a, "href"))
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		links = append(links, entity.Link{Text: collapse(textOf(a)), Href: href})
	}
	return links
}

func toElement(n *html.Node, base *url.URL) entity.PageElement {
	el := entity.PageElement{
		Tag:  n.Data,
		Text: truncate(collapse(textOf(n)), 1000),
	}
	if len(n.Attr) > 0 {
		el.Attr = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "on") || a.Key == "style" {
				continue
			}
			val := a.Val
			if a.Key == "href" || a.Key == "src" {
				val = resolve(base, val)
			}
			el.Attr[a.Key] = val
		}
	}
	return el
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "\n[truncated]"
}
