package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/output"
)

var (
	flagMessage string
	flagAuto    bool
	flagSuggest bool
)

var commitCmd = &cobra.Command{
	Use:   "commit file...",
	Short: "Commit exactly the listed files",
	Long: `Commit the listed files on the current branch. A listed file that no
longer exists is recorded as deleted.

Examples:
  ledgit commit -m "Update prices" prices.csv
  ledgit commit --auto prices.csv old.csv
  ledgit commit --suggest`,
	RunE: commitRunE,
}

func init() {
	commitCmd.Flags().StringVarP(&flagMessage, "message", "m", "", "commit message")
	commitCmd.Flags().BoolVar(&flagAuto, "auto", false, "generate the message when -m is empty")
	commitCmd.Flags().BoolVar(&flagSuggest, "suggest", false, "print the generated message without committing")
	rootCmd.AddCommand(commitCmd)
}

func commitRunE(cmd *cobra.Command, args []string) error {
	app, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}

	if flagSuggest {
		msg, err := app.SuggestCommitMessage(ctx, args)
		if err != nil {
			return err
		}
		return render(cmd, output.Message(msg))
	}

	commit := app.Commit
	if flagAuto {
		commit = app.CommitWithSuggestedMessage
	}
	c, err := commit(ctx, flagMessage, args)
	if err != nil {
		return err
	}
	return render(cmd, c)
}
