// Package feeds fetches RSS/Atom sources and turns them into the
// time-filtered, category-grouped digest request consumed by the pipeline.
package feeds

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"newsdigest/internal/core"
	"newsdigest/internal/logger"
)

// RSS represents an RSS feed structure
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Channel represents an RSS channel
type Channel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title          string     `xml:"title"`
	Link           string     `xml:"link"`
	Description    string     `xml:"description"`
	PubDate        string     `xml:"pubDate"`
	GUID           string     `xml:"guid"`
	Encoded        string     `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	MediaContent   []MediaRef `xml:"http://search.yahoo.com/mrss/ content"`
	MediaThumbnail []MediaRef `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Enclosure      *Enclosure `xml:"enclosure"`
}

// MediaRef represents a media:content or media:thumbnail reference
type MediaRef struct {
	URL    string `xml:"url,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

// Enclosure represents an RSS enclosure element
type Enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// Atom represents an Atom feed structure
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Link    []AtomLink  `xml:"link"`
	Entries []AtomEntry `xml:"entry"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title     string     `xml:"title"`
	Link      []AtomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

// Options configures feed fetching.
type Options struct {
	Window     time.Duration // only articles published within this window are kept
	MaxPerFeed int           // per-feed article cap
	Timeout    time.Duration // per-feed HTTP timeout
	UserAgent  string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Window:     24 * time.Hour,
		MaxPerFeed: 4,
		Timeout:    15 * time.Second,
		UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Manager fetches feeds and builds digest requests.
type Manager struct {
	client *http.Client
	opts   Options
	now    func() time.Time
}

// NewManager creates a feed manager.
func NewManager(opts Options) *Manager {
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Manager{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		now:    time.Now,
	}
}

// BuildDigestRequest fetches every configured source and assembles the
// request, preserving the configured category order. A failing feed is
// logged and skipped; a category whose feeds all fail simply ends up empty.
func (m *Manager) BuildDigestRequest(ctx context.Context, sources []CategorySource) (*core.DigestRequest, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no feed sources configured")
	}

	req := &core.DigestRequest{Buckets: make([]core.CategoryBucket, 0, len(sources))}
	for _, source := range sources {
		articles := m.fetchCategory(ctx, source)
		req.Buckets = append(req.Buckets, core.CategoryBucket{
			Category: source.Name,
			Emoji:    source.Emoji,
			Deals:    source.Deals,
			Articles: articles,
		})
		logger.Info("fetched category", "category", source.Name, "feeds", len(source.Feeds), "articles", len(articles))
	}
	return req, nil
}

// fetchCategory fetches all feeds of one category and returns the recent
// articles sorted newest first.
func (m *Manager) fetchCategory(ctx context.Context, source CategorySource) []core.ArticleRecord {
	cutoff := m.now().UTC().Add(-m.opts.Window)
	var articles []core.ArticleRecord

	for _, feedURL := range source.Feeds {
		fetched, err := m.fetchFeed(ctx, feedURL, cutoff)
		if err != nil {
			logger.Warn("failed to fetch feed", "url", feedURL, "error", err.Error())
			continue
		}
		articles = append(articles, fetched...)
	}

	sort.SliceStable(articles, func(a, b int) bool {
		return articles[a].Published.After(articles[b].Published)
	})
	return articles
}

// fetchFeed fetches and parses one feed, keeping at most MaxPerFeed articles
// published after the cutoff.
func (m *Manager) fetchFeed(ctx context.Context, feedURL string, cutoff time.Time) ([]core.ArticleRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", m.opts.UserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	entries, feedTitle, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	source := resolveSourceName(feedURL, feedTitle)

	var articles []core.ArticleRecord
	for _, entry := range entries {
		if len(articles) >= m.opts.MaxPerFeed && m.opts.MaxPerFeed > 0 {
			break
		}
		if entry.published.IsZero() || entry.published.Before(cutoff) {
			continue
		}
		articles = append(articles, core.ArticleRecord{
			Title:     strings.TrimSpace(entry.title),
			URL:       strings.TrimSpace(entry.link),
			Source:    source,
			Published: entry.published.UTC(),
			ImageURL:  entry.image,
			Excerpt:   excerpt(entry.description, 300),
		})
	}
	return articles, nil
}

// entry is a feed-format-independent item.
type entry struct {
	title       string
	link        string
	description string
	published   time.Time
	image       string
}

// parseFeed tries RSS first, then Atom.
func parseFeed(body []byte) ([]entry, string, error) {
	var rss RSS
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&rss); err == nil && rss.Channel.Title != "" {
		entries := make([]entry, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			entries = append(entries, entry{
				title:       item.Title,
				link:        item.Link,
				description: item.Description,
				published:   parseFeedDate(item.PubDate),
				image:       extractRSSImage(item),
			})
		}
		return entries, rss.Channel.Title, nil
	}

	var atom Atom
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&atom); err == nil && atom.Title != "" {
		entries := make([]entry, 0, len(atom.Entries))
		for _, ae := range atom.Entries {
			var link string
			for _, l := range ae.Link {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			published := parseFeedDate(ae.Published)
			if published.IsZero() {
				published = parseFeedDate(ae.Updated)
			}
			entries = append(entries, entry{
				title:       ae.Title,
				link:        link,
				description: ae.Summary,
				published:   published,
				image:       extractAtomImage(ae),
			})
		}
		return entries, atom.Title, nil
	}

	return nil, "", fmt.Errorf("unable to parse as RSS or Atom feed")
}

// parseFeedDate parses the date formats seen in the wild across RSS and Atom
// feeds. Returns the zero time when nothing matches.
func parseFeedDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t
		}
	}
	return time.Time{}
}

// excerpt strips tags from a feed description and truncates it.
func excerpt(description string, max int) string {
	text := strings.TrimSpace(stripHTML(description))
	if len(text) > max {
		text = text[:max]
		// Avoid cutting a UTF-8 sequence in half.
		for len(text) > 0 && text[len(text)-1]&0xC0 == 0x80 {
			text = text[:len(text)-1]
		}
	}
	return text
}
