package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().String("tier", "", "Filter by tier: stm, itm, ltm")
	cmd.Flags().String("cursor", "", "Page cursor from a previous listing")
	cmd.Flags().IntP("limit", "l", 50, "Page size")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("list", fmt.Errorf("--owner is required"))
	}

	tier, _ := cmd.Flags().GetString("tier")
	cursor, _ := cmd.Flags().GetString("cursor")
	limit, _ := cmd.Flags().GetInt("limit")

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	page, err := s.List(cmd.Context(), store.ListParams{
		OwnerID: ownerFlag,
		Tier:    model.Tier(tier),
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(page, "", "  ")
	fmt.Println(string(b))
}
