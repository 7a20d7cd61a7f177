package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	askQuestion string
	askLang     string
	askJSON     bool
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question",
	Long: `Answer a question against the indexed document, the same way the
HTTP API does. The exchange is recorded in the interaction history.

Examples:
  qarag ask -q "What is the capital of Ethiopia?"
  qarag ask -q "..." -l wo --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question text (required)")
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "", "question language (default is the pivot language)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the retrieved chunks")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), GetConfig(), GetRootDir(), logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.answers.Answer(cmd.Context(), askQuestion, askLang)

	if askJSON {
		out := map[string]any{
			"question": resp.Question,
			"answer":   resp.Answer,
			"lang":     resp.Language,
		}
		if len(resp.Warnings) > 0 {
			out["warnings"] = resp.Warnings
		}
		if resp.Err != nil {
			out["error"] = resp.Err.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Println(resp.Answer)
		for _, w := range resp.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Kind, w.Message)
		}
		if askSources {
			fmt.Println()
			for i, s := range resp.Sources {
				fmt.Printf("[%d] chunk %d (distance %.4f)\n%s\n\n", i+1, s.Chunk.Index, s.Distance, s.Chunk.Text)
			}
		}
	}

	return resp.Err
}
