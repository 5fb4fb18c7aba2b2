package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(achievementsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the profile summary",
	RunE:  runStats,
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Show level and progress to the next level",
	RunE:  runLevel,
}

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "List achievements and which are unlocked",
	RunE:    runAchievements,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Engine.GetStats(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(s)
	}

	last := s.LastActivityDate
	if last == "" {
		last = "never"
	}
	fmt.Printf("Level:         %d %s (%.0f%%)\n", s.Level, s.LevelTitle, s.LevelProgress)
	fmt.Printf("XP:            %d\n", s.TotalXP)
	fmt.Printf("Lessons:       %d (%d today)\n", s.LessonsCompleted, s.DailyLessons)
	fmt.Printf("Streak:        %d days (best %d)\n", s.Streak, s.LongestStreak)
	fmt.Printf("Achievements:  %d\n", s.Achievements)
	fmt.Printf("Last study:    %s\n", last)
	fmt.Printf("Sync:          %s\n", s.Sync.State)
	printSync(s.Sync)
	return nil
}

func runLevel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	info, err := d.Engine.GetLevelInfo(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(info)
	}

	fmt.Printf("Level %d: %s\n", info.CurrentLevel, info.Title)
	fmt.Printf("[%s] %.0f%%\n", progressBar(info.Progress, 30), info.Progress)
	if info.IsMaxLevel {
		fmt.Printf("%d XP, max level reached\n", info.CurrentXP)
		return nil
	}
	fmt.Printf("%d / %d XP, %d to level %d\n", info.CurrentXP, info.XPForNextLevel, info.XPNeeded, info.CurrentLevel+1)
	return nil
}

func runAchievements(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	all, err := d.Engine.GetAllAchievements(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(all)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tACHIEVEMENT\tXP\tDESCRIPTION")
	for _, a := range all {
		mark := "  "
		if a.Unlocked {
			mark = a.Icon
		}
		fmt.Fprintf(w, "%s\t%s\t+%d\t%s\n", mark, a.Title, a.XPReward, a.Description)
	}
	return w.Flush()
}
