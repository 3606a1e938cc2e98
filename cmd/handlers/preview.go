package handlers

import (
	"context"
	"fmt"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/digest"
	"newsdigest/internal/feeds"

	"github.com/spf13/cobra"
)

// NewPreviewCmd creates the prompt preview command
func NewPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Fetch feeds and print the prompt that would be sent to the model",
		Long: `Preview fetches the configured feeds and prints the exact prompt the
generate command would send to the AI backend, without invoking it. Useful
for tuning the prompt template and the per-category article caps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context())
		},
	}
}

func runPreview(ctx context.Context) error {
	cfg := config.Get()

	sources, err := feeds.LoadSources(cfg.Feeds.SourcesFile)
	if err != nil {
		return err
	}

	manager := feeds.NewManager(feeds.Options{
		Window:     time.Duration(cfg.Feeds.WindowHours) * time.Hour,
		MaxPerFeed: cfg.Feeds.MaxPerFeed,
		Timeout:    config.Duration(cfg.Feeds.Timeout, 15*time.Second),
		UserAgent:  cfg.Feeds.UserAgent,
	})

	req, err := manager.BuildDigestRequest(ctx, sources)
	if err != nil {
		return err
	}
	if req.TotalArticles() == 0 {
		fmt.Println("No recent articles found in any feed.")
		return nil
	}

	template, err := digest.LoadPromptTemplate(cfg.Digest.PromptTemplate)
	if err != nil {
		return err
	}

	// Structured backends omit the in-prompt format instructions, so preview
	// with the same setting the configured backend would use.
	structured := cfg.AI.Backend == "gemini"
	built, err := digest.BuildPrompt(req, structured, digest.PromptOptions{
		Template:                 template,
		MaxArticlesPerCategory:   cfg.Digest.MaxArticlesPerCategory,
		MaxSelectionsPerCategory: cfg.Digest.MaxSelectionsPerCategory,
		Language:                 cfg.Digest.Language,
		Policy:                   digest.SelectionPolicy(cfg.Digest.SelectionPolicy),
	})
	if err != nil {
		return err
	}

	fmt.Print(built.Text)
	fmt.Printf("\n--- %d categories, %d articles ---\n", len(built.Request.Buckets), built.Request.TotalArticles())
	return nil
}
