package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"threadscope/config"
	"threadscope/loader"
	"threadscope/storage"
	"threadscope/utils"
)

func init() {
	analyzeCmd.Flags().StringP("format", "f", "", "output format, json or yaml (default from config)")
	analyzeCmd.Flags().IntP("workers", "w", 0, "concurrent tree aggregation (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source> <output>",
	Short: "Thread the messages in source and write the result to output",
	Long: `Source may be a directory of .eml files, an mbox file, a CSV load file
or a JSON message export.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if format, _ := cmd.Flags().GetString("format"); format != "" {
			cfg.Output.Format = format
		}
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Output.Workers = workers
		}

		return runAnalyze(cfg, args[0], args[1])
	},
}

// runAnalyze loads source, runs the pipeline and writes output
func runAnalyze(cfg *config.Config, source, output string) error {
	format, err := utils.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	utils.Log.Info("Loading messages from %s", source)
	raws, err := loader.Load(source, loader.Options{HTMLFallback: cfg.Parser.HTMLFallback})
	if err != nil {
		return err
	}

	doc := utils.Analyze(raws, utils.AnalyzeOptions{Workers: cfg.Output.Workers})

	if err := storage.WriteDocument(output, doc, format, cfg.Output.Indent); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	utils.Log.Info("Thread analysis saved to %s", output)
	return nil
}
