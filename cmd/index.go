package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lexintake/lexintake/internal/config"
	"github.com/lexintake/lexintake/internal/knowledge"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the YAML knowledge base into the vector store",
	Long:  `Loads the knowledge base YAML documents (taxonomies, required fields, risk rules, output formats), embeds them and persists the vector index into the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		apiKey, err := cfg.ResolveAPIKey()
		if err != nil {
			return err
		}

		docs, loadErrs := knowledge.LoadDir(cfg.KnowledgeDir)
		for _, lerr := range loadErrs {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", lerr)
		}
		if len(docs) == 0 {
			return fmt.Errorf("no knowledge documents found under %s", cfg.KnowledgeDir)
		}

		store, err := buildKnowledgeStore(cfg, apiKey)
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(len(docs),
			progressbar.OptionSetDescription("Indexing knowledge"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
		)
		for _, doc := range docs {
			if err := store.AddDocuments(cmd.Context(), []knowledge.Document{doc}); err != nil {
				return fmt.Errorf("indexing %s: %w", doc.ID, err)
			}
			bar.Add(1)
		}
		fmt.Println()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		if err := store.Persist(cmd.Context(), cfg.DataDir); err != nil {
			return fmt.Errorf("persisting index: %w", err)
		}

		fmt.Printf("Indexed %d documents into %s\n", len(docs), cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
