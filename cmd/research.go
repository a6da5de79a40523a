package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plotforge/plotforge/internal/progress"
	"github.com/plotforge/plotforge/internal/session"
)

var (
	researchGoal        string
	researchBrief       string
	researchConstraints []string
	researchForbidden   []string
	researchForce       bool
	researchOffline     bool
)

var researchCmd = &cobra.Command{
	Use:   "research <chapter>",
	Short: "Build the working memory pack for a chapter",
	Long: `Runs the research loop for a chapter: derives knowledge gaps from the
goal, retrieves and scores evidence over multiple rounds, and compiles a
memory pack. When research comes up short it prints questions for you to
answer with ` + "`plotforge answer`" + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if researchGoal == "" {
			return fmt.Errorf("--goal is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		e, err := openEngine(cfg, researchOffline)
		if err != nil {
			return err
		}
		defer e.Close()

		pack, err := e.session.EnsurePack(cmd.Context(), session.Request{
			ProjectID:   project,
			Chapter:     args[0],
			Goal:        researchGoal,
			Brief:       researchBrief,
			Constraints: researchConstraints,
			Forbidden:   researchForbidden,
			Force:       researchForce,
			Offline:     researchOffline,
			Progress:    progress.Bar(cfg.Research.MaxRounds),
		})
		if err != nil {
			return fmt.Errorf("researching: %w", err)
		}

		payload, err := session.Decode(pack)
		if err != nil {
			fmt.Println("Research found nothing usable. Import manuscript files or add cards first.")
			return nil
		}

		fmt.Println()
		fmt.Println(payload.Memory)
		fmt.Printf("\n(stop: %s, rounds: %d, sufficient: %v)\n",
			payload.StopReason, payload.Rounds, payload.Sufficient)

		if len(payload.Questions) > 0 {
			fmt.Println("\nAnswer these to improve the pack:")
			for _, q := range payload.Questions {
				fmt.Printf("  [%s] %s\n", q.Key, q.Text)
			}
			fmt.Printf("\n  plotforge answer %s --key <key> --text <answer>\n", args[0])
		}
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchGoal, "goal", "", "what the chapter is supposed to accomplish")
	researchCmd.Flags().StringVar(&researchBrief, "brief", "", "scene brief with known timing and constraints")
	researchCmd.Flags().StringArrayVar(&researchConstraints, "constraint", nil, "world constraint that must hold in this chapter (repeatable)")
	researchCmd.Flags().StringArrayVar(&researchForbidden, "forbidden", nil, "thing that must not happen in this chapter (repeatable)")
	researchCmd.Flags().BoolVar(&researchForce, "force", false, "rebuild even when a pack already exists")
	researchCmd.Flags().BoolVar(&researchOffline, "offline", false, "skip the LLM planner, baseline retrieval only")
	rootCmd.AddCommand(researchCmd)
}
