package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Expire a memory",
		Long:  "Soft-expire a memory record. The record stays in the database for audit but is invisible to reads.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("rm", fmt.Errorf("--owner is required"))
	}

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	if err := s.Expire(cmd.Context(), ownerFlag, args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf("expired %s\n", args[0])
}
