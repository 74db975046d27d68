package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory record. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().String("kind", "conversation", "Kind: conversation, task, lesson, error, reflection, achievement")
	cmd.Flags().String("tier", "stm", "Tier: stm, itm, ltm")
	cmd.Flags().String("outcome", "neutral", "Outcome: success, failure, neutral")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("response", "", "Output/response text paired with the content")
	cmd.Flags().String("session", "", "Session ID")
	cmd.Flags().Float64("weight", 0, "Emotional weight (-1 to 1)")
	cmd.Flags().Float64("confidence", 0, "Confidence score (0 to 1)")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	if ownerFlag == "" {
		exitErr("put", fmt.Errorf("--owner is required"))
	}

	kind, _ := cmd.Flags().GetString("kind")
	tier, _ := cmd.Flags().GetString("tier")
	outcome, _ := cmd.Flags().GetString("outcome")
	tagsStr, _ := cmd.Flags().GetString("tags")
	response, _ := cmd.Flags().GetString("response")
	session, _ := cmd.Flags().GetString("session")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	params := store.StoreParams{
		OwnerID:        ownerFlag,
		SessionID:      session,
		Kind:           model.Kind(kind),
		InputContext:   strings.TrimSpace(content),
		OutputResponse: response,
		Outcome:        model.Outcome(outcome),
		PolicyValid:    true,
		Tags:           splitTags(tagsStr),
		Tier:           model.Tier(tier),
	}
	if cmd.Flags().Changed("weight") {
		w, _ := cmd.Flags().GetFloat64("weight")
		params.EmotionalWeight = &w
	}
	if cmd.Flags().Changed("confidence") {
		conf, _ := cmd.Flags().GetFloat64("confidence")
		params.ConfidenceScore = &conf
	}

	s, _, _ := openStore(loadConfig())
	defer s.Close()

	mem, err := s.Store(cmd.Context(), params)
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

func splitTags(tagsStr string) []string {
	if tagsStr == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(tagsStr, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
