package digest

import (
	"context"
	"errors"
	"fmt"

	"newsdigest/internal/core"
	"newsdigest/internal/logger"
)

// Pipeline states, logged as each digest run advances:
// building -> invoking -> validating -> {resolving | invoking (retry) | failed},
// resolving -> done unconditionally.
const (
	stateBuilding   = "building"
	stateInvoking   = "invoking"
	stateValidating = "validating"
	stateResolving  = "resolving"
)

// GeneratorOptions configures one digest generation pipeline.
type GeneratorOptions struct {
	MaxAttempts int // upper bound on backend attempts, including the first
	Prompt      PromptOptions
}

// DefaultGeneratorOptions returns sensible defaults.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		MaxAttempts: 3,
		Prompt:      DefaultPromptOptions(),
	}
}

// Generator drives the full pipeline: build prompt, invoke backend, validate,
// resolve. It is backend-agnostic; retry decisions come from the classified
// error, never from the backend variant.
type Generator struct {
	backend Backend
	opts    GeneratorOptions
}

// NewGenerator creates a generator for the given backend.
func NewGenerator(backend Backend, opts GeneratorOptions) *Generator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Generator{backend: backend, opts: opts}
}

// Result is a successful generation outcome. Diagnostics lists entries
// dropped during resolution; a non-empty list still counts as success.
type Result struct {
	Digest      *core.ResolvedDigest
	Diagnostics []Diagnostic
	Attempts    int
}

// Generate runs the pipeline for one request. Retryable failures (timeout,
// parse, schema, non-auth transport) re-drive the backend sequentially up to
// MaxAttempts; an authentication failure aborts immediately. Exhausting all
// attempts returns a *GenerationError wrapping ErrGenerationFailed. A run
// that reaches resolution always completes: unresolvable entries are dropped,
// never fatal.
func (g *Generator) Generate(ctx context.Context, req *core.DigestRequest) (*Result, error) {
	logger.Debug("building digest prompt", "state", stateBuilding, "categories", len(req.Buckets))
	built, err := BuildPrompt(req, g.backend.Structured(), g.opts.Prompt)
	if err != nil {
		return nil, err
	}
	categories := built.Request.Categories()

	var last error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Info("invoking model backend", "state", stateInvoking,
			"backend", g.backend.Name(), "attempt", attempt, "max_attempts", g.opts.MaxAttempts)
		raw, err := g.backend.Generate(ctx, GenerateRequest{Prompt: built.Text, Categories: categories})
		if err == nil {
			logger.Debug("validating backend response", "state", stateValidating, "bytes", len(raw.Text))
			var sections []core.DigestSection
			sections, err = ParseSections(raw, categories)
			if err == nil {
				logger.Debug("resolving references", "state", stateResolving, "sections", len(sections))
				resolved, diags := ResolveSections(built.Request, sections)
				for _, diag := range diags {
					logger.Warn("dropped unresolvable entry", "category", diag.Category, "ref", diag.Ref, "reason", diag.Reason)
				}
				digest := AssembleDigest(built.Request, resolved, raw.Model)
				return &Result{Digest: digest, Diagnostics: diags, Attempts: attempt}, nil
			}
		}

		last = err
		var berr *BackendError
		if errors.As(err, &berr) && !berr.Retryable() {
			return nil, fmt.Errorf("backend rejected credentials: %w", err)
		}
		logger.Warn("digest attempt failed", "attempt", attempt, "error", err.Error())
	}

	return nil, &GenerationError{Attempts: g.opts.MaxAttempts, Last: last}
}
