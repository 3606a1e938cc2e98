package digest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"newsdigest/internal/config"
)

// defaultCLITimeout bounds one subprocess invocation wall-clock.
const defaultCLITimeout = 5 * time.Minute

// CLIBackend is the subprocess variant: it invokes an external command-line
// program with the prompt as the final argument and reads its complete
// standard output after exit. Output is free text that may wrap the JSON in
// prose, so it goes through extraction and repair downstream.
type CLIBackend struct {
	command string
	args    []string
	model   string
	timeout time.Duration
}

// NewCLIBackend creates the subprocess backend from configuration. When no
// explicit args are configured, the claude CLI's flags are assumed:
// --model <model> --print.
func NewCLIBackend(cfg config.CLIConfig) *CLIBackend {
	args := append([]string{}, cfg.Args...)
	if len(args) == 0 {
		if cfg.Model != "" {
			args = append(args, "--model", cfg.Model)
		}
		args = append(args, "--print")
	}
	return &CLIBackend{
		command: cfg.Command,
		args:    args,
		model:   cfg.Model,
		timeout: config.Duration(cfg.Timeout, defaultCLITimeout),
	}
}

// Name identifies the backend in logs.
func (b *CLIBackend) Name() string { return "cli" }

// Structured reports that output is free text, not guaranteed JSON.
func (b *CLIBackend) Structured() bool { return false }

// Generate runs the subprocess under a hard wall-clock timeout. Exceeding the
// timeout kills the process and fails the attempt as a timeout; any other
// non-zero exit or empty output is a transport fault.
func (b *CLIBackend) Generate(ctx context.Context, req GenerateRequest) (*RawOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	args := append(append([]string{}, b.args...), req.Prompt)
	cmd := exec.CommandContext(ctx, b.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, timeoutErr(fmt.Errorf("%s exceeded %s and was killed", b.command, b.timeout))
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, transportErr(false, fmt.Errorf("%s failed: %s", b.command, detail))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, transportErr(false, fmt.Errorf("%s produced no output", b.command))
	}

	return &RawOutput{Text: text, Structured: false, Model: b.model}, nil
}

// NewBackend selects a backend implementation from configuration. Selection
// lives here so the rest of the pipeline stays backend-agnostic.
func NewBackend(ctx context.Context, cfg config.AI) (Backend, error) {
	switch cfg.Backend {
	case "gemini":
		return NewGeminiBackend(ctx, cfg.Gemini)
	case "cli":
		if cfg.CLI.Command == "" {
			return nil, fmt.Errorf("ai.cli.command is required for the cli backend")
		}
		return NewCLIBackend(cfg.CLI), nil
	default:
		return nil, fmt.Errorf("unknown AI backend %q (supported: gemini, cli)", cfg.Backend)
	}
}
