package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"qarag/internal/usecase"
)

var (
	translateText string
	translateFrom string
	translateTo   string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate text with the configured translation service",
	Example: `  qarag translate -t "Where is Sodo?" --from en --to wo`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVarP(&translateText, "text", "t", "", "text to translate (required)")
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "source language (default is the pivot language)")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "target language (default is the pivot language)")
	translateCmd.MarkFlagRequired("text")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	translator, err := newTranslator(cfg.Translation, cfg.Timeouts)
	if err != nil {
		return err
	}

	answers := usecase.NewAnswerUseCase(nil, nil, translator, nil, nil, usecase.AnswerOptions{
		PivotLanguage:      cfg.Translation.PivotLanguage,
		TranslationTimeout: cfg.Timeouts.Translation,
	}, logger)
	out, err := answers.Translate(cmd.Context(), translateText, translateFrom, translateTo)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
