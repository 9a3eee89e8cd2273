package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lexintake",
	Short: "Conversational legal-intake agent",
	Long: `Lexintake interviews a user about a legal dispute over a chat API,
classifies the case type, extracts structured facts through targeted
follow-up questions, and hands a structured case summary to a human
counselor. Knowledge about case taxonomies, required fields and output
formats lives in a YAML knowledge base indexed into a vector store.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "lexintake.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
