package digest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsdigest/internal/core"

	"github.com/google/uuid"
)

// Diagnostic records one dropped entry during reference resolution. Drops
// never abort the run.
type Diagnostic struct {
	Category string
	Ref      string
	Reason   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s ref %q: %s", d.Category, d.Ref, d.Reason)
}

// parseRef parses a position reference. Accepted forms are a bare 1-based
// position ("3") and a category-qualified one ("Tech & AI:3"); the returned
// category is empty for the bare form.
func parseRef(ref string) (string, int, error) {
	ref = strings.TrimSpace(ref)
	category := ""
	numeric := ref
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		category = strings.TrimSpace(ref[:idx])
		numeric = strings.TrimSpace(ref[idx+1:])
	}
	pos, err := strconv.Atoi(numeric)
	if err != nil {
		return "", 0, fmt.Errorf("ref %q is not a position identifier", ref)
	}
	if pos < 1 {
		return "", 0, fmt.Errorf("ref %q is not a 1-based position", ref)
	}
	return category, pos, nil
}

// ResolveSections maps each validated {category, ref} pair back to the
// article at that position in the originating request. Unknown categories,
// out-of-range positions, mismatched category qualifiers and duplicate
// positions are dropped with a diagnostic; the first occurrence of a
// duplicated position wins. Resolution is pure and deterministic and
// performs no I/O.
func ResolveSections(req *core.DigestRequest, sections []core.DigestSection) ([]core.ResolvedSection, []Diagnostic) {
	resolved := make([]core.ResolvedSection, 0, len(sections))
	var diags []Diagnostic

	for _, section := range sections {
		bucket, ok := req.Bucket(section.Category)
		if !ok {
			diags = append(diags, Diagnostic{section.Category, "", "unknown category"})
			continue
		}

		seen := make(map[int]bool, len(section.Items))
		items := make([]core.ResolvedItem, 0, len(section.Items))
		for _, item := range section.Items {
			refCategory, pos, err := parseRef(item.Ref)
			if err != nil {
				diags = append(diags, Diagnostic{section.Category, item.Ref, err.Error()})
				continue
			}
			if refCategory != "" && refCategory != section.Category {
				diags = append(diags, Diagnostic{section.Category, item.Ref, "ref qualifier names a different category"})
				continue
			}
			if pos > len(bucket.Articles) {
				diags = append(diags, Diagnostic{section.Category, item.Ref,
					fmt.Sprintf("position out of range (have %d articles)", len(bucket.Articles))})
				continue
			}
			if seen[pos] {
				diags = append(diags, Diagnostic{section.Category, item.Ref, "duplicate position, keeping first occurrence"})
				continue
			}
			seen[pos] = true
			items = append(items, core.ResolvedItem{
				Article:       bucket.Articles[pos-1],
				Title:         item.Title,
				Summary:       item.Summary,
				Price:         item.Price,
				OriginalPrice: item.OriginalPrice,
				Discount:      item.Discount,
				Store:         item.Store,
			})
		}

		resolved = append(resolved, core.ResolvedSection{
			Category: section.Category,
			Emoji:    bucket.Emoji,
			Deals:    bucket.Deals,
			Items:    items,
		})
	}

	return resolved, diags
}

// AssembleDigest orders resolved sections by the request's category order,
// drops sections that resolved to zero entries, and wraps the result with
// run metadata.
func AssembleDigest(req *core.DigestRequest, sections []core.ResolvedSection, model string) *core.ResolvedDigest {
	byCategory := make(map[string]core.ResolvedSection, len(sections))
	for _, section := range sections {
		if _, ok := byCategory[section.Category]; !ok {
			byCategory[section.Category] = section
		}
	}

	ordered := make([]core.ResolvedSection, 0, len(sections))
	for _, bucket := range req.Buckets {
		if section, ok := byCategory[bucket.Category]; ok && len(section.Items) > 0 {
			ordered = append(ordered, section)
		}
	}

	return &core.ResolvedDigest{
		ID:        uuid.NewString(),
		Generated: time.Now().UTC(),
		Model:     model,
		Sections:  ordered,
	}
}
