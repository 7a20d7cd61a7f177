package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"qarag/internal/domain"
	"qarag/internal/usecase"
)

var (
	feedbackJSON    bool
	feedbackSummary bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List user feedback on answers",
	Args:  cobra.NoArgs,
	RunE:  runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().BoolVar(&feedbackJSON, "json", false, "output as JSON")
	feedbackCmd.Flags().BoolVar(&feedbackSummary, "summary", false, "print counts per rating only")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	st, err := openStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := usecase.NewFeedbackUseCase(st).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read feedback: %w", err)
	}

	if feedbackSummary {
		counts := countRatings(items)
		for _, r := range []domain.FeedbackRating{domain.FeedbackGood, domain.FeedbackNeutral, domain.FeedbackBad} {
			fmt.Printf("%-8s %d\n", r, counts[r])
		}
		return nil
	}

	if feedbackJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("No feedback recorded.")
		return nil
	}
	for _, fb := range items {
		fmt.Printf("[%s] %s by %s\n", fb.Timestamp.Local().Format(time.DateTime), fb.Rating, fb.UserID)
		fmt.Printf("    Q: %s\n    A: %s\n", fb.Question, fb.Answer)
		if fb.Comment != "" {
			fmt.Printf("    Comment: %s\n", fb.Comment)
		}
		fmt.Println()
	}
	return nil
}

func countRatings(items []domain.Feedback) map[domain.FeedbackRating]int {
	counts := make(map[domain.FeedbackRating]int)
	for _, fb := range items {
		counts[fb.Rating]++
	}
	return counts
}
