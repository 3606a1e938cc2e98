package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsdigest/internal/config"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default Gemini model for digest generation.
	DefaultGeminiModel = "gemini-flash-lite-latest"
	// defaultGeminiTimeout bounds one structured call.
	defaultGeminiTimeout = 2 * time.Minute
)

// GeminiBackend is the structured-call variant: it forces the response into a
// predeclared schema via Gemini's JSON response mode, so output is
// syntactically valid JSON in all but provider-contract-violation cases.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	maxTokens   int32
	temperature float32
}

// NewGeminiBackend creates the structured-call backend from configuration.
func NewGeminiBackend(ctx context.Context, cfg config.GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiBackend{
		client:      client,
		model:       model,
		timeout:     config.Duration(cfg.Timeout, defaultGeminiTimeout),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name identifies the backend in logs.
func (b *GeminiBackend) Name() string { return "gemini" }

// Structured reports that responses arrive as schema-conformant JSON.
func (b *GeminiBackend) Structured() bool { return true }

// Generate sends the prompt with a response schema declaring one array of
// {ref, title, summary} entries per requested category, plus optional price
// fields for deal categories.
func (b *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (*RawOutput, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	temp := b.temperature
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(req.Categories),
		Temperature:      &temp,
	}
	if b.maxTokens > 0 {
		genConfig.MaxOutputTokens = b.maxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, genConfig)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, schemaErr(fmt.Errorf("empty response from model"))
	}

	return &RawOutput{Text: text, Structured: true, Model: b.model}, nil
}

// responseSchema builds the digest response schema for the requested
// categories: a top-level object with one optional array property per
// category.
func responseSchema(categories []string) *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"ref": {
				Type:        genai.TypeString,
				Description: "Article number from the input, e.g. \"3\"",
			},
			"title": {
				Type:        genai.TypeString,
				Description: "Headline for this pick, written in the requested output language",
			},
			"summary": {
				Type:        genai.TypeString,
				Description: "100-150 word summary, written in the requested output language",
			},
			"price": {
				Type:        genai.TypeString,
				Description: "Current price, only for picks in deal categories and only when stated in the input, e.g. \"$39.99\"",
			},
			"original_price": {
				Type:        genai.TypeString,
				Description: "Pre-discount price, only for picks in deal categories and only when stated in the input",
			},
			"discount": {
				Type:        genai.TypeString,
				Description: "Discount, only for picks in deal categories and only when stated in the input, e.g. \"40%\"",
			},
			"store": {
				Type:        genai.TypeString,
				Description: "Selling store, only for picks in deal categories, e.g. \"Amazon\"",
			},
		},
		Required: []string{"ref", "title", "summary"},
	}

	props := make(map[string]*genai.Schema, len(categories))
	for _, category := range categories {
		props[category] = &genai.Schema{
			Type:        genai.TypeArray,
			Description: fmt.Sprintf("Picks for the %q category, most newsworthy first", category),
			Items:       item,
		}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props}
}

// classifyGeminiError maps SDK failures onto the pipeline's error taxonomy.
func classifyGeminiError(err error) *BackendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutErr(err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		auth := apiErr.Code == 401 || apiErr.Code == 403
		return transportErr(auth, err)
	}
	return transportErr(false, err)
}
