package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/lumify/internal/model"
)

// Version is set at build time
var Version = "v1.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lumify",
	Short: "Lumify - answer rendering and citation tooling for the search widget",
	Long: `Lumify renders search answers the way the embedded widget shows them:
escaped answer text, preserved markdown links, numbered citation chips with
source tooltips and a call-to-action block.

It can query the Lumify search API, synthesize answers locally from a list
of sources, fill in missing source titles and serve the renderer over HTTP.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lumify %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := model.DefaultConfig()

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lumify/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("endpoint", defaults.API.Endpoint, "search API endpoint")
	rootCmd.PersistentFlags().String("api-key", "", "search API key (or LUMIFY_API_KEY)")
	rootCmd.PersistentFlags().String("app-id", "", "application ID (or LUMIFY_APP_ID)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("api.endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("api.api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("api.app_id", rootCmd.PersistentFlags().Lookup("app-id"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".lumify"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps LUMIFY_* variables onto nested keys. Provider keys fall back
// to their conventional variables.
func bindEnv() {
	viper.SetEnvPrefix("LUMIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("api.api_key", "LUMIFY_API_KEY")
	_ = viper.BindEnv("api.app_id", "LUMIFY_APP_ID")
	_ = viper.BindEnv("api.endpoint", "LUMIFY_ENDPOINT")
	_ = viper.BindEnv("llm.provider", "LUMIFY_LLM_PROVIDER")
	_ = viper.BindEnv("llm.model", "LUMIFY_LLM_MODEL")
	_ = viper.BindEnv("llm.api_key", "LUMIFY_LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")
	_ = viper.BindEnv("llm.base_url", "LUMIFY_LLM_BASE_URL", "OLLAMA_BASE_URL")
	_ = viper.BindEnv("http.http_proxy", "LUMIFY_HTTP_PROXY")
	_ = viper.BindEnv("http.https_proxy", "LUMIFY_HTTPS_PROXY")
	_ = viper.BindEnv("http.no_proxy", "LUMIFY_NO_PROXY")
}

// loadConfig layers the config file, environment and flags over the
// defaults and validates the result
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readJSON decodes a JSON file, or stdin when path is "-"
func readJSON(path string, in io.Reader, v any) error {
	var r io.Reader = in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
