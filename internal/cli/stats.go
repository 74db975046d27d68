package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-tier memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("stats", fmt.Errorf("--owner is required"))
	}

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), ownerFlag)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
