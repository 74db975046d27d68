package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "promote [id]",
		Short: "Promote a memory one tier forward",
		Args:  cobra.ExactArgs(1),
		Run:   runPromote,
	}

	cmd.Flags().String("tier", "", "Target tier (default: the next tier)")

	RootCmd.AddCommand(cmd)
}

func runPromote(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("promote", fmt.Errorf("--owner is required"))
	}
	tierStr, _ := cmd.Flags().GetString("tier")

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	target := model.Tier(tierStr)
	if target == "" {
		cur, err := s.Peek(cmd.Context(), ownerFlag, args[0])
		if err != nil {
			exitErr("promote", err)
		}
		next, ok := cur.Tier.Next()
		if !ok {
			exitErr("promote", fmt.Errorf("%s is already long-term", args[0]))
		}
		target = next
	}

	mem, err := s.Promote(cmd.Context(), ownerFlag, args[0], target)
	if err != nil {
		exitErr("promote", err)
	}

	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}
