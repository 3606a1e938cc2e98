package handlers

import (
	"context"
	"fmt"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/digest"
	"newsdigest/internal/email"
	"newsdigest/internal/feeds"
	"newsdigest/internal/logger"
	"newsdigest/internal/messaging"
	"newsdigest/internal/render"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the digest generation command
func NewGenerateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch feeds, generate the digest, and deliver it",
		Long: `Generate runs the full pipeline:

  1. Fetch all configured RSS/Atom feeds and group articles by category
  2. Ask the configured AI backend to pick and summarize the top stories
  3. Write the digest as an HTML file to the output directory
  4. Deliver it by email and/or Telegram when configured

With --dry-run the digest is written to disk but nothing is delivered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate and write the digest but skip email/Telegram delivery")

	return cmd
}

func runGenerate(ctx context.Context, dryRun bool) error {
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
		fmt.Println("No recent articles found in any feed; nothing to digest.")
		return nil
	}

	backend, err := digest.NewBackend(ctx, cfg.AI)
	if err != nil {
		return err
	}

	template, err := digest.LoadPromptTemplate(cfg.Digest.PromptTemplate)
	if err != nil {
		return err
	}

	generator := digest.NewGenerator(backend, digest.GeneratorOptions{
		MaxAttempts: cfg.Digest.MaxAttempts,
		Prompt: digest.PromptOptions{
			Template:                 template,
			MaxArticlesPerCategory:   cfg.Digest.MaxArticlesPerCategory,
			MaxSelectionsPerCategory: cfg.Digest.MaxSelectionsPerCategory,
			Language:                 cfg.Digest.Language,
			Policy:                   digest.SelectionPolicy(cfg.Digest.SelectionPolicy),
		},
	})

	result, err := generator.Generate(ctx, req)
	if err != nil {
		return err
	}
	logger.Info("digest generated",
		"sections", len(result.Digest.Sections),
		"attempts", result.Attempts,
		"dropped", len(result.Diagnostics))

	path, err := render.WriteDigestFile(result.Digest, cfg.Output.Directory)
	if err != nil {
		return err
	}
	fmt.Printf("Digest written to %s\n", path)

	if dryRun {
		fmt.Println("Dry run: skipping delivery.")
		return nil
	}

	if len(cfg.Email.To) > 0 {
		if err := deliverEmail(cfg.Email, result); err != nil {
			return err
		}
		fmt.Printf("Digest emailed to %d recipient(s)\n", len(cfg.Email.To))
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		if err := deliverTelegram(ctx, cfg.Telegram, result); err != nil {
			return err
		}
		fmt.Println("Digest sent to Telegram")
	}

	return nil
}

func deliverEmail(cfg config.Email, result *digest.Result) error {
	sender, err := email.NewSender(cfg.SMTP)
	if err != nil {
		return err
	}

	html, err := render.RenderHTML(result.Digest)
	if err != nil {
		return err
	}

	subject := cfg.Subject
	if subject == "" {
		subject = fmt.Sprintf("📰 Daily News Digest - %s", result.Digest.Generated.Format("January 2, 2006"))
	}

	return sender.Send(email.Message{
		From:     cfg.FromAddress,
		FromName: cfg.FromName,
		To:       cfg.To,
		Subject:  subject,
		HTML:     html,
	})
}

func deliverTelegram(ctx context.Context, cfg config.Telegram, result *digest.Result) error {
	client, err := messaging.NewTelegramClient(cfg.BotToken, cfg.ChatID)
	if err != nil {
		return err
	}
	return client.SendDigest(ctx, render.RenderText(result.Digest))
}
