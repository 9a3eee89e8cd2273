package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexintake/lexintake/internal/config"
	"github.com/lexintake/lexintake/internal/db"
	"github.com/lexintake/lexintake/internal/extract"
	"github.com/lexintake/lexintake/internal/intake"
	"github.com/lexintake/lexintake/internal/knowledge"
	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/processlog"
	"github.com/lexintake/lexintake/internal/server"
	"github.com/lexintake/lexintake/internal/session"
	"github.com/lexintake/lexintake/internal/summary"
)

var corsAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake chat server",
	Long:  `Starts the HTTP and WebSocket chat API backed by the conversation engine, the SQLite store and the indexed knowledge base.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "lexintake.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Without an API key the service still runs: classification and
		// extraction degrade to their keyword and pattern fallbacks.
		sessions := session.NewStore(database)
		summaries := summary.NewStore(database)
		recorder := processlog.NewRecorder(database)
		costs := llm.NewCostTracker()

		var provider llm.Provider
		var retriever *knowledge.Retriever
		apiKey, err := cfg.ResolveAPIKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v, running with fallbacks only\n", err)
		} else {
			provider = buildProvider(cfg, apiKey, recorder, costs)

			store, err := buildKnowledgeStore(cfg, apiKey)
			if err != nil {
				return err
			}
			if err := store.Load(cmd.Context(), cfg.DataDir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not load knowledge index from %s: %v\n", cfg.DataDir, err)
				fmt.Fprintf(os.Stderr, "Static fallback tables will be used. Run `lexintake index` first.\n")
			} else {
				retriever = knowledge.NewRetriever(store)
				if verbose {
					fmt.Fprintf(os.Stderr, "knowledge index loaded: %d documents\n", store.Count())
				}
			}
		}

		timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second

		engine := intake.NewEngine(intake.Options{
			Sessions:   sessions,
			Retriever:  retriever,
			Classifier: intake.NewClassifier(retriever, provider, cfg.Model),
			Analyzer:   extract.NewAnalyzer(provider, cfg.Model, timeout, nil),
			Strategies: map[extract.Method]extract.Strategy{
				extract.MethodPattern:    extract.NewPatternStrategy(provider, cfg.Model, nil),
				extract.MethodTranscript: extract.NewTranscriptStrategy(provider, cfg.Model, nil),
			},
			Assigner:   extract.NewAssigner(extract.Method(cfg.Extraction.Method), cfg.Extraction.ABTest, time.Now().UnixNano()),
			Summarizer: summary.NewGenerator(provider, cfg.Model, retriever, summaries),
			Logger:     recorder,
			MaxDepth:   cfg.Session.MaxStageDepth,
			MaxAsks:    cfg.Session.MaxFieldAsks,
		})

		srv := server.New(server.Config{
			Port:     cfg.Port,
			APIKey:   cfg.APIKey,
			AllowAll: corsAllowAll,
		}, engine, sessions, summaries, recorder, costs)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go sweepStaleSessions(ctx, sessions, time.Duration(cfg.Session.ExpiryHours)*time.Hour)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

// sweepStaleSessions periodically marks abandoned sessions aborted.
func sweepStaleSessions(ctx context.Context, sessions *session.Store, expiry time.Duration) {
	if expiry <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.ExpireStale(ctx, expiry); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: expiring stale sessions: %v\n", err)
			} else if n > 0 && verbose {
				fmt.Fprintf(os.Stderr, "expired %d stale sessions\n", n)
			}
		}
	}
}

// buildProvider assembles the LLM gateway with its middleware stack.
// Usage reporting sits directly on the transport so cached responses
// are not double-counted.
func buildProvider(cfg *config.Config, apiKey string, recorder *processlog.Recorder, costs *llm.CostTracker) llm.Provider {
	var provider llm.Provider = llm.NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL)
	provider = llm.WithUsage(provider, func(ctx context.Context, model string, in, out int, duration time.Duration) {
		sessionID := llm.SessionFromContext(ctx)
		recorder.LLMCall(ctx, sessionID, "completion", model, in, out, duration, "")
		costs.Record(sessionID, model, in, out)
	})
	if cfg.LLM.MaxRetries > 0 {
		provider = llm.WithRetry(provider, cfg.LLM.MaxRetries)
	}
	if cfg.LLM.RequestsPerMin > 0 {
		provider = llm.WithRateLimit(provider, cfg.LLM.RequestsPerMin)
	}
	if cfg.LLM.CacheTTLMin > 0 {
		provider = llm.WithCache(provider, time.Duration(cfg.LLM.CacheTTLMin)*time.Minute)
	}
	return provider
}

func init() {
	serveCmd.Flags().BoolVar(&corsAllowAll, "cors-allow-all", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
