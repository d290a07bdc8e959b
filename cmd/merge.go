package cmd

import (
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge branch",
	Short: "Merge a local branch into the current one",
	Long: `Merge a local branch into the current branch. When both sides changed the
same lines the merge stops, the conflicted files are listed, and the files
contain conflict markers. Edit them, then run "ledgit resolve".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		res, err := app.Merge(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd, res)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve file...",
	Short: "Commit resolved conflicts and conclude the merge",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		c, err := app.ResolveConflicts(ctx, args)
		if err != nil {
			return err
		}
		return render(cmd, c)
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd, resolveCmd)
}
