// Package cli implements the mnemos CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/store"
)

var (
	dbPath     string
	configPath string
	ownerFlag  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemos",
	Short: "Tiered memory store for AI agents",
	Long:  "A tiered memory service for AI agents: short/mid/long-term storage, semantic search, context composition and nightly distillation. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MNEMOS_DB or ~/.mnemos/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	RootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID to scope the command to")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// openStore wires the durable store with the configured embedder and an
// in-memory vector index, rebuilt from LTM records on open.
func openStore(cfg config.Config) (*store.SQLiteStore, index.SemanticIndex, embedding.Embedder) {
	embedder := embedding.NewFromConfig(cfg.Embedder)
	idx := index.NewChromemIndex()

	s, err := store.NewSQLiteStore(cfg.DBPath, cfg.Memory, embedder, idx, cliLogger())
	if err != nil {
		exitErr("open store", err)
	}
	return s, idx, embedder
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
