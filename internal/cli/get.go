package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a memory",
		Long:  "Retrieve a memory record by ID. Counts as an access unless --peek is set.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("peek", false, "Read without incrementing the access count")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("get", fmt.Errorf("--owner is required"))
	}
	peek, _ := cmd.Flags().GetBool("peek")

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	var (
		mem interface{}
		err error
	)
	if peek {
		mem, err = s.Peek(cmd.Context(), ownerFlag, args[0])
	} else {
		mem, err = s.Retrieve(cmd.Context(), ownerFlag, args[0])
	}
	if err != nil {
		exitErr("get", err)
	}

	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}
