package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/distill"
)

func init() {
	cmd := &cobra.Command{
		Use:   "distill",
		Short: "Run one distillation pass",
		Long:  "Run the consolidation job once: distill recent reflections into knowledge, promote frequently used memories and expire stale ones. Scope to one owner with -o, or run over all owners.",
		Run:   runDistill,
	}

	RootCmd.AddCommand(cmd)
}

func runDistill(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	s, _, embedder := openStore(cfg)
	defer s.Close()

	if _, err := s.ReindexLTM(cmd.Context()); err != nil {
		exitErr("reindex", err)
	}

	engine := distill.NewEngine(s, embedder, cfg.Distill, cfg.Memory, cliLogger())
	report, err := engine.Run(cmd.Context(), ownerFlag)
	if err != nil {
		exitErr("distill", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
