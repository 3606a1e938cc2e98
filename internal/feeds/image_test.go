package feeds

import "testing"

func TestIsValidImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://img.example.com/photo.jpg", true},
		{"https://img.example.com/photo.png", true},
		{"", false},
		{"https://example.com/favicon.ico", false},
		{"https://example.com/favicon-32.png", false},
		{"https://example.com/logo.svg", false},
		{"https://example.com/clip.mp4", false},
		{"https://example.com/clip.webm", false},
		{"https://news.google.com/whatever.jpg", false},
	}
	for _, tt := range tests {
		if got := isValidImageURL(tt.url); got != tt.want {
			t.Errorf("isValidImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestExtractRSSImagePriority(t *testing.T) {
	item := RSSItem{
		MediaContent: []MediaRef{
			{URL: "https://img.example.com/small.jpg"},
			{URL: "https://img.example.com/large.jpg"},
		},
		MediaThumbnail: []MediaRef{{URL: "https://img.example.com/thumb.jpg"}},
		Description:    `<img src="https://img.example.com/inline.jpg"/>`,
	}

	// media:content wins, and the last (largest) rendition is preferred.
	if got := extractRSSImage(item); got != "https://img.example.com/large.jpg" {
		t.Errorf("expected last media:content entry, got %q", got)
	}

	item.MediaContent = nil
	if got := extractRSSImage(item); got != "https://img.example.com/thumb.jpg" {
		t.Errorf("expected media:thumbnail fallback, got %q", got)
	}

	item.MediaThumbnail = nil
	if got := extractRSSImage(item); got != "https://img.example.com/inline.jpg" {
		t.Errorf("expected inline <img> fallback, got %q", got)
	}

	item.Description = "plain text only"
	if got := extractRSSImage(item); got != "" {
		t.Errorf("expected no image, got %q", got)
	}
}

func TestExtractRSSImageSkipsInvalid(t *testing.T) {
	item := RSSItem{
		MediaContent: []MediaRef{{URL: "https://example.com/favicon.ico"}},
		Enclosure:    &Enclosure{URL: "https://example.com/episode.mp3", Type: "audio/mpeg"},
	}
	if got := extractRSSImage(item); got != "" {
		t.Errorf("invalid candidates must be skipped, got %q", got)
	}
}

func TestResolveSourceName(t *testing.T) {
	tests := []struct {
		feedURL   string
		feedTitle string
		want      string
	}{
		{"https://www.ft.com/rss/home", "Home", "Financial Times"},
		{"https://news.google.com/rss/search?q=allinurl:reuters.com", "reuters.com - Google News", "Reuters"},
		{"https://feeds.bbci.co.uk/news/rss.xml", "BBC News", "BBC News"},
		{"https://example.com/feed", "", "example.com"},
	}
	for _, tt := range tests {
		if got := resolveSourceName(tt.feedURL, tt.feedTitle); got != tt.want {
			t.Errorf("resolveSourceName(%q, %q) = %q, want %q", tt.feedURL, tt.feedTitle, got, tt.want)
		}
	}
}
