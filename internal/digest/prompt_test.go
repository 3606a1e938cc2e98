package digest

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"newsdigest/internal/core"
)

func promptRequest(perCategory int) *core.DigestRequest {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	articles := make([]core.ArticleRecord, 0, perCategory)
	for i := 0; i < perCategory; i++ {
		articles = append(articles, core.ArticleRecord{
			Title:     fmt.Sprintf("Story %d", i+1),
			URL:       fmt.Sprintf("https://example.com/%d", i+1),
			Source:    "Example",
			Published: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return &core.DigestRequest{
		Buckets: []core.CategoryBucket{{Category: "Tech", Articles: articles}},
	}
}

func TestBuildPromptDensePositions(t *testing.T) {
	built, err := BuildPrompt(promptRequest(3), true, DefaultPromptOptions())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		marker := fmt.Sprintf("[%d] Story %d", i, i)
		if !strings.Contains(built.Text, marker) {
			t.Errorf("prompt missing %q:\n%s", marker, built.Text)
		}
	}
	if !strings.Contains(built.Text, "## Tech") {
		t.Error("prompt missing category heading")
	}
}

func TestBuildPromptTruncationNewest(t *testing.T) {
	opts := DefaultPromptOptions()
	opts.MaxArticlesPerCategory = 2

	built, err := BuildPrompt(promptRequest(5), true, opts)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	// Stories 4 and 5 are the newest; positions restart at 1 after truncation.
	kept := built.Request.Buckets[0].Articles
	if len(kept) != 2 || kept[0].Title != "Story 4" || kept[1].Title != "Story 5" {
		t.Fatalf("newest policy kept wrong articles: %+v", kept)
	}
	if !strings.Contains(built.Text, "[1] Story 4") || !strings.Contains(built.Text, "[2] Story 5") {
		t.Errorf("positions not reassigned after truncation:\n%s", built.Text)
	}
	if strings.Contains(built.Text, "Story 1") {
		t.Error("truncated article leaked into prompt")
	}
}

func TestBuildPromptTruncationFirstSeen(t *testing.T) {
	opts := DefaultPromptOptions()
	opts.MaxArticlesPerCategory = 2
	opts.Policy = SelectFirstSeen

	built, err := BuildPrompt(promptRequest(5), true, opts)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	kept := built.Request.Buckets[0].Articles
	if len(kept) != 2 || kept[0].Title != "Story 1" || kept[1].Title != "Story 2" {
		t.Errorf("first_seen policy kept wrong articles: %+v", kept)
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	opts := DefaultPromptOptions()
	opts.MaxArticlesPerCategory = 3

	first, err1 := BuildPrompt(promptRequest(6), false, opts)
	second, err2 := BuildPrompt(promptRequest(6), false, opts)
	if err1 != nil || err2 != nil {
		t.Fatalf("BuildPrompt failed: %v / %v", err1, err2)
	}
	if first.Text != second.Text {
		t.Error("prompt text differs between identical runs")
	}
	if !reflect.DeepEqual(first.Request, second.Request) {
		t.Error("truncated request differs between identical runs")
	}
}

func TestBuildPromptPlaceholders(t *testing.T) {
	opts := DefaultPromptOptions()
	opts.Language = "German"
	opts.MaxSelectionsPerCategory = 4

	built, err := BuildPrompt(promptRequest(2), false, opts)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	if strings.Contains(built.Text, "$articles") || strings.Contains(built.Text, "$language") {
		t.Error("placeholders left unsubstituted")
	}
	if !strings.Contains(built.Text, "German") {
		t.Error("language not substituted")
	}
	if !strings.Contains(built.Text, "pick the 4 most newsworthy") {
		t.Errorf("max selections not substituted:\n%s", built.Text)
	}
}

func TestBuildPromptFormatInstructionsOnlyForFreeText(t *testing.T) {
	structured, err := BuildPrompt(promptRequest(1), true, DefaultPromptOptions())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	freeText, err := BuildPrompt(promptRequest(1), false, DefaultPromptOptions())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	if strings.Contains(structured.Text, "Output only valid JSON") {
		t.Error("structured prompt should not carry format instructions")
	}
	if !strings.Contains(freeText.Text, "Output only valid JSON") {
		t.Error("free-text prompt must carry format instructions")
	}
}

func TestBuildPromptDealsCategory(t *testing.T) {
	req := promptRequest(2)
	req.Buckets = append(req.Buckets, core.CategoryBucket{
		Category: "Deals",
		Deals:    true,
		Articles: []core.ArticleRecord{
			{Title: "Headphones 33% off", URL: "https://example.com/deal", Source: "Slickdeals", Published: time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)},
		},
	})

	built, err := BuildPrompt(req, false, DefaultPromptOptions())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	if !strings.Contains(built.Text, "## Deals (deals)") {
		t.Error("deal category heading not marked")
	}
	if strings.Contains(built.Text, "## Tech (deals)") {
		t.Error("non-deal category must not be marked")
	}
	if !strings.Contains(built.Text, `"original_price"`) {
		t.Error("free-text format instructions missing the deal field example")
	}
	if !built.Request.Buckets[1].Deals {
		t.Error("deal flag not carried into the truncated request")
	}
}

func TestBuildPromptSkipsEmptyBuckets(t *testing.T) {
	req := promptRequest(2)
	req.Buckets = append(req.Buckets, core.CategoryBucket{Category: "Empty"})

	built, err := BuildPrompt(req, true, DefaultPromptOptions())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	if strings.Contains(built.Text, "## Empty") {
		t.Error("empty bucket should not appear in prompt")
	}
	if len(built.Request.Buckets) != 1 {
		t.Errorf("empty bucket should not appear in truncated request: %+v", built.Request.Buckets)
	}
}

func TestBuildPromptNoArticles(t *testing.T) {
	req := &core.DigestRequest{Buckets: []core.CategoryBucket{{Category: "Tech"}}}
	if _, err := BuildPrompt(req, true, DefaultPromptOptions()); err == nil {
		t.Error("expected error for request without articles")
	}
}

func TestLoadPromptTemplateRequiresArticlesPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmpl.md")
	if err := os.WriteFile(path, []byte("no placeholder here"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPromptTemplate(path); err == nil {
		t.Error("expected error for template without $articles")
	}
}

func TestLoadPromptTemplateDefault(t *testing.T) {
	tmpl, err := LoadPromptTemplate("")
	if err != nil {
		t.Fatalf("LoadPromptTemplate failed: %v", err)
	}
	if !strings.Contains(tmpl, "$articles") {
		t.Error("built-in template is missing the $articles placeholder")
	}
}
