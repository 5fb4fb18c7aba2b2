package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	xpCmd.Flags().StringVarP(&xpReason, "reason", "r", "manual", "Why the XP is awarded")
	rootCmd.AddCommand(xpCmd)
	rootCmd.AddCommand(checkCmd)
}

var xpReason string

var xpCmd = &cobra.Command{
	Use:   "xp AMOUNT",
	Short: "Award XP directly",
	Args:  cobra.ExactArgs(1),
	RunE:  runXP,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Unlock any achievements the current progress qualifies for",
	RunE:  runCheck,
}

func runXP(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Engine.AddXP(ctx, amount, xpReason)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("+%d XP (total %d)\n", res.XPGained, res.TotalXP)
	if res.LeveledUp {
		fmt.Printf("Level up! Now level %d\n", res.NewLevel)
	}
	printSync(res.Sync)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	unlocked, err := d.Engine.CheckAchievements(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(unlocked)
	}
	if len(unlocked) == 0 {
		fmt.Println("No new achievements.")
		return nil
	}
	for _, a := range unlocked {
		fmt.Printf("%s Achievement unlocked: %s (+%d XP)\n", a.Icon, a.Title, a.XPReward)
	}
	return nil
}
