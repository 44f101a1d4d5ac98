package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"threadscope/config"
	"threadscope/utils"
)

var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "threadscope",
	Short: "Reconstruct email conversation threads",
	Long: `threadscope rebuilds reply trees from email messages using their
Message-ID, In-Reply-To and References headers, computes per-thread
statistics and writes the result as JSON or YAML.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with status 1 on failure.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (defaults are used when empty)")
}

// loadConfig reads the --config file, or the defaults, and applies the
// log level
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	level, err := utils.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = utils.DEBUG
	}
	utils.Log.SetLevel(level)

	return cfg, nil
}
