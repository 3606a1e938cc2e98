package feeds

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSources(t, `
categories:
  - name: Tech & AI
    emoji: "💻"
    feeds:
      - https://example.com/tech.xml
      - https://example.com/ai.xml
  - name: World
    emoji: "🌍"
    feeds:
      - https://example.com/world.xml
`)

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(sources))
	}
	// Order in the file defines digest category order.
	if sources[0].Name != "Tech & AI" || sources[1].Name != "World" {
		t.Errorf("category order not preserved: %+v", sources)
	}
	if len(sources[0].Feeds) != 2 || sources[0].Emoji != "💻" {
		t.Errorf("unexpected first category: %+v", sources[0])
	}
}

func TestLoadSourcesDealsFlag(t *testing.T) {
	path := writeSources(t, `
categories:
  - name: Tech
    feeds: [https://example.com/tech.xml]
  - name: Deals
    emoji: "🛒"
    deals: true
    feeds: [https://example.com/deals.xml]
`)

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}
	if sources[0].Deals {
		t.Error("deals flag must default to false")
	}
	if !sources[1].Deals {
		t.Errorf("deals flag not parsed: %+v", sources[1])
	}
}

func TestLoadSourcesRejectsDuplicates(t *testing.T) {
	path := writeSources(t, `
categories:
  - name: Tech
    feeds: [https://example.com/a.xml]
  - name: Tech
    feeds: [https://example.com/b.xml]
`)
	if _, err := LoadSources(path); err == nil {
		t.Error("expected error for duplicate category names")
	}
}

func TestLoadSourcesRejectsEmptyFeeds(t *testing.T) {
	path := writeSources(t, `
categories:
  - name: Tech
    feeds: []
`)
	if _, err := LoadSources(path); err == nil {
		t.Error("expected error for category without feeds")
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
