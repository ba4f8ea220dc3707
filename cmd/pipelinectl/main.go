package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	definitionPath string
	jsonOutput     bool
)

var rootCmd = &cobra.Command{
	Use:           "pipelinectl <command>",
	Short:         "Inspect and exercise the sales pipeline rules",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&definitionPath, "definition", os.Getenv("PIPELINE_CONFIG_PATH"), "pipeline definition file (.yaml or .toml); empty uses the built-in default")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(checkConfigCmd, validateCmd, rankingCmd)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
