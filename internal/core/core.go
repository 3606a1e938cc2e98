// Package core defines the shared data model for the digest pipeline.
package core

import "time"

// ArticleRecord represents one time-filtered article handed over by the feed
// collaborator. Records are immutable for the life of a run.
type ArticleRecord struct {
	Title     string    `json:"title"`               // Article headline as published
	URL       string    `json:"url"`                 // Canonical article URL
	Source    string    `json:"source"`              // Publisher name (e.g. "BBC News")
	Published time.Time `json:"published"`           // Publication timestamp in UTC
	ImageURL  string    `json:"image_url,omitempty"` // Optional thumbnail URL
	Excerpt   string    `json:"excerpt,omitempty"`   // Optional short excerpt from the feed
}

// CategoryBucket holds the articles of one category in fetch order. An
// article's position is its 1-based index in Articles for the current run.
type CategoryBucket struct {
	Category string          `json:"category"`
	Emoji    string          `json:"emoji,omitempty"` // Display emoji for the category
	Deals    bool            `json:"deals,omitempty"` // Shopping-deal category: entries carry price fields and render compactly
	Articles []ArticleRecord `json:"articles"`
}

// DigestRequest is the immutable input to one digest generation. Bucket order
// defines the category order of the final digest.
type DigestRequest struct {
	Buckets []CategoryBucket `json:"buckets"`
}

// Bucket returns the bucket for the given category label.
func (r *DigestRequest) Bucket(category string) (*CategoryBucket, bool) {
	for i := range r.Buckets {
		if r.Buckets[i].Category == category {
			return &r.Buckets[i], true
		}
	}
	return nil, false
}

// Categories returns the category labels in bucket order.
func (r *DigestRequest) Categories() []string {
	names := make([]string, 0, len(r.Buckets))
	for i := range r.Buckets {
		names = append(names, r.Buckets[i].Category)
	}
	return names
}

// TotalArticles returns the number of articles across all buckets.
func (r *DigestRequest) TotalArticles() int {
	n := 0
	for i := range r.Buckets {
		n += len(r.Buckets[i].Articles)
	}
	return n
}

// SectionItem is one model-selected entry before reference resolution. Ref
// points back at an article position; Title and Summary are model-written in
// the configured output language. The price fields are only filled for
// shopping-deal categories, and only when the source text carries them.
type SectionItem struct {
	Ref           string `json:"ref"`
	Title         string `json:"title,omitempty"`
	Summary       string `json:"summary"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`
	Discount      string `json:"discount,omitempty"`
	Store         string `json:"store,omitempty"`
}

// DigestSection is one category's worth of validated, unresolved entries.
type DigestSection struct {
	Category string        `json:"category"`
	Items    []SectionItem `json:"items"`
}

// ResolvedItem binds a model-written summary back to its source article.
type ResolvedItem struct {
	Article       ArticleRecord `json:"article"`
	Title         string        `json:"title,omitempty"`
	Summary       string        `json:"summary"`
	Price         string        `json:"price,omitempty"`
	OriginalPrice string        `json:"original_price,omitempty"`
	Discount      string        `json:"discount,omitempty"`
	Store         string        `json:"store,omitempty"`
}

// ResolvedSection groups resolved items under their category.
type ResolvedSection struct {
	Category string         `json:"category"`
	Emoji    string         `json:"emoji,omitempty"`
	Deals    bool           `json:"deals,omitempty"`
	Items    []ResolvedItem `json:"items"`
}

// ResolvedDigest is the final artifact handed to the renderer. Sections appear
// in DigestRequest order; categories with zero resolved items are omitted.
type ResolvedDigest struct {
	ID        string            `json:"id"`        // Unique identifier for this digest run
	Generated time.Time         `json:"generated"` // When the digest was generated (UTC)
	Model     string            `json:"model"`     // Model that produced the summaries
	Sections  []ResolvedSection `json:"sections"`
}
