package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"qarag/internal/domain"
)

var (
	historyLimit int
	historyJSON  bool
	historyCSV   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show logged question/answer exchanges",
	Long: `Show the interaction history, oldest first.

Examples:
  qarag history --limit 20
  qarag history --csv interactions.csv   # Export every record`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the most recent N records (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().StringVar(&historyCSV, "csv", "", "write records to a CSV file")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.LoadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if historyLimit > 0 && len(items) > historyLimit {
		items = items[len(items)-historyLimit:]
	}

	if historyCSV != "" {
		f, err := os.Create(historyCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeInteractionsCSV(f, items); err != nil {
			return err
		}
		fmt.Printf("Wrote %d records to %s\n", len(items), historyCSV)
		return nil
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("No interactions recorded.")
		return nil
	}
	for _, it := range items {
		fmt.Printf("[%s] (%s) Q: %s\n", it.Timestamp.Local().Format(time.DateTime), it.Language, it.Question)
		fmt.Printf("    A: %s\n\n", it.Answer)
	}
	return nil
}

func writeInteractionsCSV(w io.Writer, items []domain.Interaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "question", "answer", "lang"}); err != nil {
		return err
	}
	for _, it := range items {
		row := []string{it.Timestamp.UTC().Format(time.RFC3339), it.Question, it.Answer, it.Language}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
