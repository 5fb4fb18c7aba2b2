package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hellobible/hellobible/internal/daemon"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(resetCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [ACCESS_TOKEN]",
	Short: "Sign in with a Supabase access token",
	Long: `Sign in with a Supabase access token. The token is read from the
argument, or from the HELLOBIBLE_ACCESS_TOKEN environment variable.

After signing in, progress is loaded from the remote database and every
change is mirrored to it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out; progress stays on this device",
	RunE:  runLogout,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear local gamification progress (remote data is kept)",
	RunE:  runReset,
}

func runLogin(cmd *cobra.Command, args []string) error {
	token := os.Getenv("HELLOBIBLE_ACCESS_TOKEN")
	if len(args) == 1 {
		token = args[0]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("no access token given")
	}

	ctx := cmd.Context()
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	userID, err := d.Session.Login(ctx, token)
	if err != nil {
		return err
	}
	snap, err := d.Engine.Initialize(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", userID)
	fmt.Printf("Level %d, %d XP, %d-day streak\n", snap.Level, snap.TotalXP, snap.Streak)
	printSync(d.Engine.SyncStatus())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Session.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	snap, err := d.Engine.Reset(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(snap)
	}
	fmt.Println("Local progress cleared.")
	if snap.TotalXP > 0 {
		fmt.Printf("Reloaded from remote: level %d, %d XP\n", snap.Level, snap.TotalXP)
	}
	return nil
}
