package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/pipeline"
)

var (
	sourcesFile   string
	answerTimeout time.Duration
	llmProvider   string
	llmModel      string
)

// answerCmd represents the answer command
var answerCmd = &cobra.Command{
	Use:   "answer <query>",
	Short: "Synthesize a cited answer locally from a list of sources",
	Long: `Answer asks an LLM to answer a question using only the given sources,
citing them as [n]. In strict mode (the default) an answer citing a source
that does not exist is rejected. The result is rendered like a search answer.

Example:
  lumify answer "How do refunds work?" --sources sources.json
  lumify answer "How do refunds work?" --sources sources.json --llm-provider anthropic
  lumify answer "How do refunds work?" --sources sources.json --md answer.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().StringVarP(&sourcesFile, "sources", "s", "", "JSON file with the sources array (- for stdin)")
	answerCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (default: stdout)")
	answerCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	answerCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	answerCmd.Flags().DurationVar(&answerTimeout, "timeout", 0, "overall timeout (default: llm.timeout plus enrichment)")
	answerCmd.Flags().BoolVar(&enrich, "enrich", false, "fetch titles for untitled sources")
	answerCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	answerCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	_ = answerCmd.MarkFlagRequired("sources")
}

func runAnswer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cmd.Flags().Changed("enrich") {
		cfg.Enrich.Enabled = enrich
	}
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("no LLM provider configured (set --llm-provider or llm.provider)")
	}

	var sources []model.Source
	if err := readJSON(sourcesFile, cmd.InOrStdin(), &sources); err != nil {
		return err
	}

	ctx := context.Background()
	if answerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, answerTimeout)
		defer cancel()
	}

	p := pipeline.NewPipeline(cfg)
	if !p.Synthesizer().IsEnabled() {
		return fmt.Errorf("LLM provider %q is not available", cfg.LLM.Provider)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "LLM: %s/%s, %d sources\n", p.Synthesizer().ProviderName(), cfg.LLM.Model, len(sources))
	}

	result := p.Answer(ctx, strings.Join(args, " "), sources)
	if err := emit(cmd, result); err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("answer: %s", result.Error)
	}
	return nil
}
