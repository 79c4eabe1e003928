package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lumify/internal/pipeline"
)

var (
	refresh     bool
	popularHTML bool
)

// popularCmd represents the popular command
var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List popular questions for the application",
	Long: `Popular loads the application's popular questions from the local cache,
the API, or the configured fallback list, in that order.

Example:
  lumify popular
  lumify popular --refresh
  lumify popular --html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.PopularQuestions.Enabled = true

		p := pipeline.NewPipeline(cfg)
		result, err := p.Popular(context.Background(), refresh)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if popularHTML {
			fmt.Fprintln(out, result.HTML)
			return nil
		}
		for i, q := range result.Questions {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "(%d questions from %s)\n", len(result.Questions), result.Origin)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(popularCmd)

	popularCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	popularCmd.Flags().BoolVar(&popularHTML, "html", false, "print the rendered list")
}
