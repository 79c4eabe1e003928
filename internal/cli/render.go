package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/pipeline"
)

var (
	outHTML    string
	outJSON    string
	outMD      string
	renderText bool
	linkTarget string
	queryText  string
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <response.json|->",
	Short: "Render a saved search response as widget HTML",
	Long: `Render formats a search API response exactly as the widget displays it:
escaped answer text, preserved markdown links, citation chips with tooltips,
the call-to-action block and the confidence line.

With --text the input is {"text": "...", "sources": [...]} and only the
answer body is formatted.

Example:
  lumify render response.json
  lumify render response.json --html answer.html --json answer.json
  echo '{"text":"See [1]","sources":[{"url":"https://a.example"}]}' | lumify render - --text`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (default: stdout)")
	renderCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	renderCmd.Flags().BoolVar(&renderText, "text", false, "input is raw answer text with sources")
	renderCmd.Flags().StringVar(&linkTarget, "target", "", "citation link target (same-window, new-tab)")
	renderCmd.Flags().StringVarP(&queryText, "query", "q", "", "query the response answers")
}

// textInput is the --text input shape
type textInput struct {
	Text    string         `json:"text"`
	Sources []model.Source `json:"sources"`
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := pipeline.NewPipeline(cfg)

	if renderText {
		var in textInput
		if err := readJSON(args[0], cmd.InOrStdin(), &in); err != nil {
			return err
		}
		target := model.ResolveLinkTarget(linkTarget, cfg.Widget.CTATarget)
		fmt.Fprintln(cmd.OutOrStdout(), p.Formatter().Format(in.Text, in.Sources, target))
		return nil
	}

	var resp model.SearchResponse
	if err := readJSON(args[0], cmd.InOrStdin(), &resp); err != nil {
		return err
	}
	if linkTarget != "" {
		target, ok := model.ParseLinkTarget(linkTarget)
		if !ok {
			return fmt.Errorf("invalid --target %q (allowed: same-window, new-tab)", linkTarget)
		}
		if resp.Metadata == nil {
			resp.Metadata = &model.Metadata{}
		}
		resp.Metadata.LinkTarget = target
	}

	result := p.Render(context.Background(), queryText, &resp)
	return emit(cmd, result)
}

// emit writes a result to the requested files, or its HTML to stdout when
// no HTML path is given
func emit(cmd *cobra.Command, result *pipeline.Result) error {
	renderer := pipeline.NewRenderer(os.Stderr, verbose)
	if err := renderer.RenderResult(result, outHTML, outJSON, outMD); err != nil {
		return err
	}
	if outHTML == "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.HTML)
	}
	if verbose {
		renderer.RenderSummary(os.Stderr, result)
	}
	return nil
}
