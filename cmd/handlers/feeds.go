package handlers

import (
	"fmt"
	"os"
	"text/tabwriter"

	"newsdigest/internal/config"
	"newsdigest/internal/feeds"

	"github.com/spf13/cobra"
)

// NewFeedsCmd creates the feed source listing command
func NewFeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List the configured categories and their feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsList()
		},
	}
}

func runFeedsList() error {
	cfg := config.Get()

	sources, err := feeds.LoadSources(cfg.Feeds.SourcesFile)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tEMOJI\tFEEDS")
	total := 0
	for _, source := range sources {
		fmt.Fprintf(w, "%s\t%s\t%d\n", source.Name, source.Emoji, len(source.Feeds))
		total += len(source.Feeds)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d categories, %d feeds (from %s)\n", len(sources), total, cfg.Feeds.SourcesFile)
	return nil
}
