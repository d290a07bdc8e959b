package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/go-ledgit/pkg/ledgit"
)

var (
	flagFile   string
	flagLimit  int
	flagOffset int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show history, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		commits, err := app.Log(ctx, ledgit.LogOptions{Path: flagFile, Limit: flagLimit, Offset: flagOffset})
		if err != nil {
			return err
		}
		return render(cmd, commits)
	},
}

var showCmd = &cobra.Command{
	Use:   "show commit path",
	Short: "Print a file as recorded in a commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		content, err := app.ShowFileAtCommit(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return render(cmd, content)
	},
}

func init() {
	logCmd.Flags().StringVarP(&flagFile, "file", "f", "", "only commits that change this path")
	logCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum number of commits (default: log-limit from config)")
	logCmd.Flags().IntVar(&flagOffset, "offset", 0, "number of matching commits to skip")
	rootCmd.AddCommand(logCmd, showCmd)
}
