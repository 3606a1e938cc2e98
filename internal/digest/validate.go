package digest

import (
	"encoding/json"
	"fmt"
	"strings"

	"newsdigest/internal/core"
)

// rawItem mirrors one entry of the candidate object. Ref tolerates both JSON
// strings and bare numbers, since models emit either.
type rawItem struct {
	Ref           flexString `json:"ref"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Price         string     `json:"price"`
	OriginalPrice string     `json:"original_price"`
	Discount      string     `json:"discount"`
	Store         string     `json:"store"`
}

// flexString unmarshals from a JSON string or number token.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("empty ref token")
	}
	if token[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if token[0] == '{' || token[0] == '[' {
		return fmt.Errorf("ref must be a string or number, got %c", token[0])
	}
	*f = flexString(token)
	return nil
}

// ParseSections turns a backend response into validated digest sections,
// ordered by the requested category order. The candidate object must be a
// mapping whose keys are a subset of the requested categories and whose
// values are lists of {ref, title, summary} entries with non-empty summaries
// and syntactically valid refs.
//
// Validation failures are classified per the backend variant: SchemaViolation
// for structured backends (a provider contract breach), ParseError for
// free-text backends where extraction and one repair pass did not yield a
// schema-valid object.
func ParseSections(raw *RawOutput, requested []string) ([]core.DigestSection, error) {
	classify := parseErr
	if raw.Structured {
		classify = schemaErr
	}

	text := raw.Text
	if !raw.Structured {
		repaired, err := RepairJSON(text)
		if err != nil {
			return nil, parseErr(err)
		}
		text = repaired
	}

	var candidate map[string][]rawItem
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, classify(fmt.Errorf("response is not a category mapping: %w", err))
	}

	allowed := make(map[string]bool, len(requested))
	for _, category := range requested {
		allowed[category] = true
	}

	for category, items := range candidate {
		if !allowed[category] {
			return nil, classify(fmt.Errorf("response contains unknown category %q", category))
		}
		for i, item := range items {
			if strings.TrimSpace(item.Summary) == "" {
				return nil, classify(fmt.Errorf("category %q item %d has an empty summary", category, i+1))
			}
			if _, _, err := parseRef(string(item.Ref)); err != nil {
				return nil, classify(fmt.Errorf("category %q item %d: %w", category, i+1, err))
			}
		}
	}

	// Emit sections in requested order; absent or empty categories produce no
	// section at all.
	sections := make([]core.DigestSection, 0, len(candidate))
	for _, category := range requested {
		items := candidate[category]
		if len(items) == 0 {
			continue
		}
		section := core.DigestSection{Category: category, Items: make([]core.SectionItem, 0, len(items))}
		for _, item := range items {
			section.Items = append(section.Items, core.SectionItem{
				Ref:           string(item.Ref),
				Title:         strings.TrimSpace(item.Title),
				Summary:       strings.TrimSpace(item.Summary),
				Price:         strings.TrimSpace(item.Price),
				OriginalPrice: strings.TrimSpace(item.OriginalPrice),
				Discount:      strings.TrimSpace(item.Discount),
				Store:         strings.TrimSpace(item.Store),
			})
		}
		sections = append(sections, section)
	}
	return sections, nil
}
