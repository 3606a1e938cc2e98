package core

import "testing"

func sampleRequest() *DigestRequest {
	return &DigestRequest{
		Buckets: []CategoryBucket{
			{Category: "Tech", Articles: make([]ArticleRecord, 3)},
			{Category: "World", Articles: make([]ArticleRecord, 1)},
			{Category: "Science"},
		},
	}
}

func TestBucketLookup(t *testing.T) {
	req := sampleRequest()

	bucket, ok := req.Bucket("World")
	if !ok || bucket.Category != "World" {
		t.Errorf("Bucket(World) = %+v, %v", bucket, ok)
	}
	if _, ok := req.Bucket("Sports"); ok {
		t.Error("expected miss for unknown category")
	}
}

func TestCategoriesOrder(t *testing.T) {
	got := sampleRequest().Categories()
	want := []string{"Tech", "World", "Science"}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTotalArticles(t *testing.T) {
	if got := sampleRequest().TotalArticles(); got != 4 {
		t.Errorf("TotalArticles() = %d, want 4", got)
	}
	empty := &DigestRequest{}
	if got := empty.TotalArticles(); got != 0 {
		t.Errorf("TotalArticles() on empty request = %d", got)
	}
}
