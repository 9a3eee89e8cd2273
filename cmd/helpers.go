package cmd

import (
	"fmt"

	"github.com/lexintake/lexintake/internal/config"
	"github.com/lexintake/lexintake/internal/embeddings"
	"github.com/lexintake/lexintake/internal/knowledge"
)

// buildKnowledgeStore creates the vector store over an OpenAI embedder.
// Shared by the serve and index commands.
func buildKnowledgeStore(cfg *config.Config, apiKey string) (*knowledge.ChromemStore, error) {
	embedder := embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel))
	store, err := knowledge.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	return store, nil
}
