package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/lumify/internal/pipeline"
	"github.com/ppiankov/lumify/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the renderer over HTTP",
	Long: `Serve exposes rendering, tooltip placement, search and popular questions
as a JSON API:

  POST /v1/render    format answer text or a full response
  POST /v1/place     compute a tooltip placement
  POST /v1/search    search and render
  POST /v1/answer    synthesize from sources and render
  GET  /v1/popular   popular questions (?refresh=true)
  GET  /healthz      liveness`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := pipeline.NewPipeline(cfg)
		e := server.New(cfg, p, os.Stderr)

		fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.Addr)
		return server.Run(ctx, e, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
