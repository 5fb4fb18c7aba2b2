package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/domain"
)

func init() {
	completeCmd.Flags().IntVarP(&completeScore, "score", "s", 0, "Quiz score 0-100 (0 when the lesson had no quiz)")
	rootCmd.AddCommand(completeCmd)
}

var completeScore int

var completeCmd = &cobra.Command{
	Use:   "complete [MODULE LESSON]",
	Short: "Complete a lesson and award XP",
	Long: `Complete a lesson. With MODULE and LESSON the lesson is also marked
done in that module; without them only the gamification award runs.

Examples:
  hellobible complete fundamentos-da-fe criacao --score 100
  hellobible complete --score 80`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected MODULE and LESSON, or no arguments")
		}
		return nil
	},
	RunE: runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	var res domain.LessonResult
	if len(args) == 2 {
		out, err := d.Study.CompleteLesson(ctx, args[0], args[1], completeScore)
		var pf *study.PartialFailure
		if errors.As(err, &pf) && pf.LessonRecorded {
			fmt.Printf("Lesson %s/%s marked complete, but XP was not awarded.\n", args[0], args[1])
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out)
		}
		if out.AlreadyCompleted {
			fmt.Printf("Lesson %s/%s was already complete (reviewed).\n", args[0], args[1])
		}
		fmt.Printf("Module progress: %.0f%%\n", out.ModuleProgress*100)
		res = *out.Gamification
	} else {
		res, err = d.Engine.CompleteLesson(ctx, completeScore)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
	}

	printLessonResult(res)
	return nil
}

func printLessonResult(res domain.LessonResult) {
	fmt.Printf("+%d XP (total %d)\n", res.XPGained, res.FinalTotalXP)
	fmt.Printf("Streak: %d days\n", res.Streak)
	for _, a := range res.NewAchievements {
		fmt.Printf("%s Achievement unlocked: %s (+%d XP)\n", a.Icon, a.Title, a.XPReward)
	}
	if res.FinalLevel > res.NewLevel || res.LeveledUp {
		fmt.Printf("Level up! Now level %d\n", res.FinalLevel)
	}
	printSync(res.Sync)
}
