// Package extract pulls structured metadata and links out of rendered HTML.
// All functions tolerate blank or partial documents: a page whose navigation
// failed still yields a usable (mostly empty) snapshot.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxLinkTextLen = 80

// Metadata is a pure extraction snapshot of one page's head and headings.
type Metadata struct {
	Title              string
	Description        string
	Canonical          string
	Robots             string
	H1Count            int
	H1s                []string
	OGTitle            string
	OGDescription      string
	OGImage            string
	OGType             string
	TwitterCard        string
	TwitterTitle       string
	TwitterDescription string
	JSONLD             []string
	Viewport           string
	Charset            string
	Lang               string
}

// Link is one anchor found on a page, resolved to an absolute URL.
type Link struct {
	Href string
	Text string
}

// ParseMetadata parses the page head, headings, and structured data blocks.
func ParseMetadata(html string) Metadata {
	var meta Metadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")

		switch strings.ToLower(name) {
		case "description":
			meta.Description = content
		case "robots":
			meta.Robots = content
		case "viewport":
			meta.Viewport = content
		case "twitter:card":
			meta.TwitterCard = content
		case "twitter:title":
			meta.TwitterTitle = content
		case "twitter:description":
			meta.TwitterDescription = content
		}

		switch strings.ToLower(property) {
		case "og:title":
			meta.OGTitle = content
		case "og:description":
			meta.OGDescription = content
		case "og:image":
			meta.OGImage = content
		case "og:type":
			meta.OGType = content
		}

		if charset, ok := s.Attr("charset"); ok {
			meta.Charset = charset
		}
	})

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		meta.Canonical = href
	}

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		meta.H1Count++
		if text := strings.TrimSpace(s.Text()); text != "" {
			meta.H1s = append(meta.H1s, text)
		}
	})

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		if blob := strings.TrimSpace(s.Text()); blob != "" {
			meta.JSONLD = append(meta.JSONLD, blob)
		}
	})

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Lang = lang
	}

	return meta
}

// ParseLinks extracts all anchors and resolves each href against the page's
// own URL. Malformed hrefs are silently skipped.
func ParseLinks(html, pageURL string) []Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	// An explicit <base href> overrides the page URL for resolution.
	if baseHref, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if parsed, err := url.Parse(baseHref); err == nil {
			base = base.ResolveReference(parsed)
		}
	}

	var links []Link
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			parsed = base.ResolveReference(parsed)
		}
		absolute := parsed.String()

		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}

		links = append(links, Link{
			Href: absolute,
			Text: truncate(strings.TrimSpace(s.Text()), maxLinkTextLen),
		})
	})

	return links
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
