package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plotforge/plotforge/internal/answers"
)

var (
	answerKey      string
	answerText     string
	answerQuestion string
)

var answerCmd = &cobra.Command{
	Use:   "answer <chapter>",
	Short: "Record an answer to a research question",
	Long: `Stores your answer to a question printed by ` + "`plotforge research`" + `.
The next forced research run feeds it back as high-weight memory evidence.
Answering with 不知道 (or leaving it blank) marks the question as unanswerable
so it is never asked again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if answerKey == "" {
			return fmt.Errorf("--key is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		e, err := openEngine(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		err = e.session.SubmitAnswers(cmd.Context(), project, args[0], []answers.Answer{{
			QuestionKey: answerKey,
			Question:    answerQuestion,
			Answer:      answerText,
		}})
		if err != nil {
			return fmt.Errorf("storing answer: %w", err)
		}

		fmt.Printf("Answer recorded. Rebuild the pack with:\n  plotforge research %s --goal <goal> --force\n", args[0])
		return nil
	},
}

func init() {
	answerCmd.Flags().StringVar(&answerKey, "key", "", "question key from the research output")
	answerCmd.Flags().StringVar(&answerText, "text", "", "your answer")
	answerCmd.Flags().StringVar(&answerQuestion, "question", "", "the question text, for the record")
	rootCmd.AddCommand(answerCmd)
}
