package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsdigest/internal/core"
)

func testDigest() *core.ResolvedDigest {
	return &core.ResolvedDigest{
		ID:        "run-1",
		Generated: time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC),
		Model:     "test-model",
		Sections: []core.ResolvedSection{
			{
				Category: "Tech & AI",
				Emoji:    "💻",
				Items: []core.ResolvedItem{
					{
						Article: core.ArticleRecord{
							Title:     "Original headline",
							URL:       "https://example.com/story",
							Source:    "Example News",
							Published: time.Date(2025, 6, 2, 5, 30, 0, 0, time.UTC),
							ImageURL:  "https://img.example.com/story.jpg",
						},
						Title:   "Model headline",
						Summary: "A concise summary of the story.",
					},
					{
						Article: core.ArticleRecord{
							Title:     "Second story",
							URL:       "https://example.com/second",
							Source:    "Example News",
							Published: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
						},
						Summary: "Second summary.",
					},
				},
			},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(testDigest())
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}

	for _, want := range []string{
		"June 2, 2025",
		"💻 Tech &amp; AI",
		"1. Model headline",
		"2. Second story", // falls back to the article title
		`src="https://img.example.com/story.jpg"`,
		`href="https://example.com/story"`,
		"Example News",
		"test-model",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}

	// The second item has no image, so exactly one <img> appears.
	if strings.Count(html, "<img") != 1 {
		t.Errorf("expected exactly one image tag, got %d", strings.Count(html, "<img"))
	}
}

func dealsDigest() *core.ResolvedDigest {
	return &core.ResolvedDigest{
		ID:        "run-2",
		Generated: time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC),
		Model:     "test-model",
		Sections: []core.ResolvedSection{
			{
				Category: "Today's Deals",
				Emoji:    "🛒",
				Deals:    true,
				Items: []core.ResolvedItem{
					{
						Article: core.ArticleRecord{
							Title:     "Headphones 33% off",
							URL:       "https://example.com/deal",
							Source:    "Slickdeals",
							Published: time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC),
							ImageURL:  "https://img.example.com/deal.jpg",
						},
						Title:         "Noise-cancelling headphones",
						Summary:       "Lowest price this year.",
						Price:         "$39.99",
						OriginalPrice: "$59.99",
						Discount:      "33%",
						Store:         "Amazon",
					},
				},
			},
		},
	}
}

func TestRenderHTMLDeals(t *testing.T) {
	html, err := RenderHTML(dealsDigest())
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}

	for _, want := range []string{
		"$39.99",
		"(was $59.99, save 33%)",
		"📍 Amazon",
		">View deal</a>",
		"float:left", // deal sections use the compact thumbnail layout
		`href="https://example.com/deal"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered deal HTML missing %q", want)
		}
	}
	if strings.Contains(html, "📰 Slickdeals") {
		t.Error("deal entries must not carry the news source footer")
	}
}

func TestRenderHTMLDealWithoutPrice(t *testing.T) {
	digest := dealsDigest()
	digest.Sections[0].Items[0].Price = ""

	html, err := RenderHTML(digest)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if strings.Contains(html, "was $59.99") {
		t.Error("price line must be omitted when no price is given")
	}
	if !strings.Contains(html, ">View deal</a>") {
		t.Error("deal link must render regardless of price")
	}
}

func TestRenderTextDeals(t *testing.T) {
	text := RenderText(dealsDigest())

	for _, want := range []string{
		"<b>🛒 Today&#39;s Deals</b>",
		"💰 <b>$39.99</b> (was $59.99, save 33%) | 📍 Amazon",
		`🛒 <a href="https://example.com/deal">View deal</a>`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered deal text missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "📰") {
		t.Error("deal entries must not carry the news source line")
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	digest := testDigest()
	digest.Sections[0].Items[0].Summary = `<script>alert("x")</script>`

	html, err := RenderHTML(digest)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if strings.Contains(html, `<script>alert`) {
		t.Error("summary content must be HTML-escaped")
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(testDigest())

	for _, want := range []string{
		"<b>💻 Tech &amp; AI</b>",
		"<b>1. Model headline</b>",
		"A concise summary of the story.",
		`<a href="https://example.com/story">`,
		"📰 Example News",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "<img") || strings.Contains(text, "<p") {
		t.Error("chat rendering must only use <b> and <a> tags")
	}
}

func TestWriteDigestFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteDigestFile(testDigest(), dir)
	if err != nil {
		t.Fatalf("WriteDigestFile failed: %v", err)
	}
	if filepath.Base(path) != "digest-2025-06-02.html" {
		t.Errorf("unexpected file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("digest file not written: %v", err)
	}
	if !strings.Contains(string(data), "Model headline") {
		t.Error("digest file content incomplete")
	}
}
