package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lumify/internal/pipeline"
)

var (
	timeout time.Duration
	enrich  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the search API and render the answer",
	Long: `Search sends a question to the Lumify search API, optionally fills in
missing source titles, and renders the answer as widget HTML.

Failures render as the widget's error block and are reported on stderr.

Example:
  lumify search "How do refunds work?"
  lumify search "How do refunds work?" --html answer.html --json answer.json
  lumify search "Where is my order?" --enrich -v`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (default: stdout)")
	searchCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	searchCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	searchCmd.Flags().BoolVar(&enrich, "enrich", false, "fetch titles for untitled sources")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("enrich") {
		cfg.Enrich.Enabled = enrich
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg)
	result := p.Run(ctx, strings.Join(args, " "))
	if err := emit(cmd, result); err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("search: %s", result.Error)
	}
	return nil
}
