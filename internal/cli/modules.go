package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hellobible/hellobible/internal/daemon"
	"github.com/hellobible/hellobible/internal/domain"
)

func init() {
	rootCmd.AddCommand(modulesCmd)
}

var modulesCmd = &cobra.Command{
	Use:     "modules [MODULE]",
	Aliases: []string{"ls"},
	Short:   "List study modules, or the lessons of one module",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runModules,
}

func runModules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if len(args) == 1 {
		return showModule(ctx, d, args[0])
	}

	sums, err := d.Lessons.Summaries(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(sums)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tLESSONS\tPROGRESS")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%3.0f%%\n", s.ID, s.Title, s.Completed, s.TotalLessons, s.Progress*100)
	}
	return w.Flush()
}

func showModule(ctx context.Context, d *daemon.Daemon, id string) error {
	m, ok := d.Catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrModuleNotFound, id)
	}
	progress, err := d.Lessons.CalculateModuleProgress(ctx, id)
	if err != nil {
		return err
	}
	next, hasNext, err := d.Lessons.NextLesson(ctx, id)
	if err != nil {
		return err
	}

	done := make(map[string]bool)
	ids, err := d.Lessons.CompletedLessons(ctx, id)
	if err != nil {
		return err
	}
	for _, l := range ids {
		done[l] = true
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"module":               m,
			"progress":             progress,
			"completed_lesson_ids": ids,
		})
	}

	fmt.Printf("%s: %s\n", m.Title, m.Description)
	fmt.Printf("[%s] %.0f%%\n\n", progressBar(progress*100, 30), progress*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLESSON\tTITLE\tVERSE\t")
	for _, l := range m.Lessons {
		mark := ""
		switch {
		case done[l.ID]:
			mark = "✓"
		case hasNext && l.ID == next.ID:
			mark = "← next"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", l.Order, l.ID, l.Title, l.VerseRef, mark)
	}
	return w.Flush()
}
