package digest

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"newsdigest/internal/core"
)

//go:embed templates/digest_prompt.md
var defaultPromptTemplate string

// cliFormatInstructions is appended to the prompt for free-text backends
// only. Structured backends enforce the same shape through their response
// schema, which saves the instruction tokens.
const cliFormatInstructions = `Output a single JSON object and nothing else (no markdown fences, no preamble, no closing remarks).

JSON shape, with one key per category that has picks:
{"Tech & AI": [{"ref": "3", "title": "headline", "summary": "100-150 word summary"}],
 "Deals": [{"ref": "5", "title": "product name", "summary": "one-line pitch", "price": "$XX.XX", "original_price": "$YY", "discount": "XX%", "store": "Amazon"}]}

The price, original_price, discount and store fields apply only to categories marked (deals).

Output only valid JSON.`

// SelectionPolicy decides which articles survive truncation when a category
// exceeds the per-category cap.
type SelectionPolicy string

const (
	// SelectNewest keeps the most recently published articles.
	SelectNewest SelectionPolicy = "newest"
	// SelectFirstSeen keeps the first articles in bucket order.
	SelectFirstSeen SelectionPolicy = "first_seen"
)

// PromptOptions configures prompt construction.
type PromptOptions struct {
	Template                 string          // template text; empty uses the built-in one
	MaxArticlesPerCategory   int             // truncation cap per bucket (0 = no cap)
	MaxSelectionsPerCategory int             // upper bound on picks stated to the model
	Language                 string          // output language stated to the model
	Policy                   SelectionPolicy // truncation policy
}

// DefaultPromptOptions returns sensible defaults.
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		MaxArticlesPerCategory:   15,
		MaxSelectionsPerCategory: 5,
		Language:                 "English",
		Policy:                   SelectNewest,
	}
}

// BuiltPrompt is the serialized prompt plus the (possibly truncated) request
// whose bucket order defines the article positions the model will reference.
type BuiltPrompt struct {
	Text    string
	Request *core.DigestRequest
}

// LoadPromptTemplate reads a template override from disk, or returns the
// built-in template when path is empty. The template must contain the
// $articles placeholder; $format_instructions, $language and $max_selections
// are optional.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return defaultPromptTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}
	if !strings.Contains(string(data), "$articles") {
		return "", fmt.Errorf("prompt template %s is missing the $articles placeholder", path)
	}
	return string(data), nil
}

// BuildPrompt serializes the request into one prompt string. Every article
// receives a dense 1-based position within its category, assigned in bucket
// order after truncation. The returned request is what references must be
// resolved against.
func BuildPrompt(req *core.DigestRequest, structured bool, opts PromptOptions) (*BuiltPrompt, error) {
	if req == nil || len(req.Buckets) == 0 {
		return nil, fmt.Errorf("digest request has no categories")
	}

	template := opts.Template
	if template == "" {
		template = defaultPromptTemplate
	}

	truncated := &core.DigestRequest{Buckets: make([]core.CategoryBucket, 0, len(req.Buckets))}
	var listing strings.Builder

	for _, bucket := range req.Buckets {
		articles := truncateBucket(bucket.Articles, opts.MaxArticlesPerCategory, opts.Policy)
		if len(articles) == 0 {
			continue
		}
		truncated.Buckets = append(truncated.Buckets, core.CategoryBucket{
			Category: bucket.Category,
			Emoji:    bucket.Emoji,
			Deals:    bucket.Deals,
			Articles: articles,
		})

		heading := bucket.Category
		if bucket.Deals {
			heading += " (deals)"
		}
		listing.WriteString(fmt.Sprintf("\n## %s\n\n", heading))
		for i, article := range articles {
			listing.WriteString(fmt.Sprintf("[%d] %s | src: %s | %s\n",
				i+1, article.Title, article.Source, article.Published.Format("2006-01-02 15:04")))
			if article.Excerpt != "" {
				listing.WriteString(article.Excerpt)
				listing.WriteString("\n")
			}
			listing.WriteString("\n")
		}
	}

	if len(truncated.Buckets) == 0 {
		return nil, fmt.Errorf("digest request has no articles")
	}

	formatInstructions := ""
	if !structured {
		formatInstructions = cliFormatInstructions
	}

	text := template
	text = strings.ReplaceAll(text, "$articles", strings.TrimSpace(listing.String()))
	text = strings.ReplaceAll(text, "$format_instructions", formatInstructions)
	text = strings.ReplaceAll(text, "$language", opts.Language)
	text = strings.ReplaceAll(text, "$max_selections", fmt.Sprintf("%d", opts.MaxSelectionsPerCategory))

	return &BuiltPrompt{Text: strings.TrimSpace(text) + "\n", Request: truncated}, nil
}

// truncateBucket applies the selection policy, preserving the surviving
// articles' relative bucket order so assigned positions stay stable.
func truncateBucket(articles []core.ArticleRecord, cap int, policy SelectionPolicy) []core.ArticleRecord {
	if cap <= 0 || len(articles) <= cap {
		return articles
	}

	if policy == SelectFirstSeen {
		return articles[:cap]
	}

	// Newest policy: rank indices by publication time (ties broken by bucket
	// order), keep the top cap, then restore bucket order.
	indices := make([]int, len(articles))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ta, tb := articles[indices[a]].Published, articles[indices[b]].Published
		if ta.Equal(tb) {
			return indices[a] < indices[b]
		}
		return ta.After(tb)
	})
	keep := indices[:cap]
	sort.Ints(keep)

	kept := make([]core.ArticleRecord, 0, cap)
	for _, i := range keep {
		kept = append(kept, articles[i])
	}
	return kept
}
