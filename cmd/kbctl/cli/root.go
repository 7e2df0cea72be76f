// Package cli implements the kbctl command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbplatform/kb-orchestrator/config"
	"github.com/kbplatform/kb-orchestrator/internal/observability"
	"github.com/kbplatform/kb-orchestrator/services/session"
)

var rootCmd = &cobra.Command{
	Use:          "kbctl",
	Short:        "kbctl manages knowledge base indexes and answers questions against them",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `kbctl uploads documents to a remote vector store, groups them into
searchable indexes, tracks asynchronous indexing jobs, and answers
questions with retrieval-augmented generation.

Credentials are read from OPENAI_API_KEY (or a .env file).`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSession loads configuration, builds the logger and returns a configured
// session. Every command goes through here; the API key is validated against
// the remote store before any operation runs.
func newSession(ctx context.Context) (*session.Session, *config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(cfg, logger)
	if err := sess.Configure(ctx, cfg.OpenAI.APIKey); err != nil {
		return nil, nil, err
	}
	return sess, cfg, nil
}
