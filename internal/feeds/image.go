package feeds

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractRSSImage extracts a thumbnail URL from an RSS item, trying fields in
// priority order. Returns "" when nothing usable is found.
func extractRSSImage(item RSSItem) string {
	// media:content carries the article image on Guardian/Ars-style feeds;
	// the last entry tends to be the largest rendition.
	if n := len(item.MediaContent); n > 0 {
		if u := item.MediaContent[n-1].URL; isValidImageURL(u) {
			return u
		}
	}
	// media:thumbnail is the lower-resolution fallback (BBC-style feeds).
	if len(item.MediaThumbnail) > 0 {
		if u := item.MediaThumbnail[0].URL; isValidImageURL(u) {
			return u
		}
	}
	if item.Enclosure != nil && strings.HasPrefix(item.Enclosure.Type, "image/") {
		if isValidImageURL(item.Enclosure.URL) {
			return item.Enclosure.URL
		}
	}
	if u := firstImageSrc(item.Encoded); isValidImageURL(u) {
		return u
	}
	if u := firstImageSrc(item.Description); isValidImageURL(u) {
		return u
	}
	return ""
}

// extractAtomImage extracts a thumbnail URL from an Atom entry.
func extractAtomImage(ae AtomEntry) string {
	if u := firstImageSrc(ae.Content); isValidImageURL(u) {
		return u
	}
	if u := firstImageSrc(ae.Summary); isValidImageURL(u) {
		return u
	}
	return ""
}

// firstImageSrc returns the src of the first <img> in an HTML fragment.
func firstImageSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// isValidImageURL rejects favicons, tiny icons and non-image files.
func isValidImageURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	if strings.Contains(lower, "favicon") {
		return false
	}
	for _, ext := range []string{".ico", ".svg", ".mp4", ".webm", ".ogg"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	// Google News RSS only carries the site favicon, not article images.
	if strings.HasPrefix(u, "https://news.google.com/") {
		return false
	}
	return true
}

// stripHTML removes markup from a feed description fragment.
func stripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// sourceNameOverrides maps feed hostnames whose feed titles are unusable to a
// clean publisher name.
var sourceNameOverrides = map[string]string{
	"www.ft.com": "Financial Times",
}

var googleNewsSiteRe = regexp.MustCompile(`allinurl:([a-zA-Z0-9.-]+\.[a-z]{2,})`)

// resolveSourceName returns a clean source name for a feed, handling Google
// News search feeds and known overrides.
func resolveSourceName(feedURL, feedTitle string) string {
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return feedTitle
	}
	host := parsed.Hostname()
	if name, ok := sourceNameOverrides[host]; ok {
		return name
	}
	if host == "news.google.com" && strings.Contains(feedURL, "/search") {
		if match := googleNewsSiteRe.FindStringSubmatch(feedURL); match != nil {
			site := strings.SplitN(match[1], ".", 2)[0]
			return strings.ToUpper(site[:1]) + site[1:]
		}
	}
	if feedTitle == "" {
		return host
	}
	return feedTitle
}
